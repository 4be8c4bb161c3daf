package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardTraderFetchPrice(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"card":{"blueprint_id":88421,"pricing":{"trend":2.75}}}`))
	}))
	defer server.Close()

	svc := NewCardTraderService(server.URL, "token", time.Second)
	data, err := svc.FetchPrice(context.Background(), "jp", "card-9")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "/marketplace/jp/cards/card-9", gotPath)
	assert.Equal(t, "88421", data.ExternalID)
	assert.Equal(t, int64(275), *data.TrendCents)
}

func TestCardTraderFetchPriceNoData(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"missing card", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"missing pricing block", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"card":{"blueprint_id":1}}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			svc := NewCardTraderService(server.URL, "", time.Second)
			data, err := svc.FetchPrice(context.Background(), "en", "card-9")
			assert.NoError(t, err)
			assert.Nil(t, data)
		})
	}
}

func TestCardTraderFetchPriceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewCardTraderService(server.URL, "", time.Second)
	data, err := svc.FetchPrice(context.Background(), "en", "card-9")
	assert.Error(t, err)
	assert.Nil(t, data)
}
