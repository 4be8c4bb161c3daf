package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/binderbay/backend/internal/jobs"
)

// JobHandler exposes the batch runners for manual triggering. The runners'
// own overlap guards make a trigger racing the schedule harmless.
type JobHandler struct {
	snapshotJob *jobs.SnapshotJob
	alertEngine *jobs.AlertEngine
}

func NewJobHandler(snapshotJob *jobs.SnapshotJob, alertEngine *jobs.AlertEngine) *JobHandler {
	return &JobHandler{
		snapshotJob: snapshotJob,
		alertEngine: alertEngine,
	}
}

// RunSnapshotJob runs one snapshot batch and returns its summary
func (h *JobHandler) RunSnapshotJob(c *gin.Context) {
	summary, err := h.snapshotJob.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RunAlertEngine runs one alert evaluation pass and returns its summary
func (h *JobHandler) RunAlertEngine(c *gin.Context) {
	summary, err := h.alertEngine.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}
