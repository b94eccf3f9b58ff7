package syncer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/dropsearch/internal/indexsync"
	"github.com/openmined/dropsearch/internal/server/handlers/api"
)

type Syncer interface {
	Sync(ctx context.Context) (*indexsync.Report, error)
	LastReport() *indexsync.Report
}

type SyncHandler struct {
	svc Syncer
}

func New(svc Syncer) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Sync runs one sync pass and returns its report
//
//	@Summary		Run a sync pass
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	indexsync.Report
//	@Failure		500	{object}	api.APIError
//	@Router			/api/v1/sync [post]
func (h *SyncHandler) Sync(ctx *gin.Context) {
	report, err := h.svc.Sync(ctx.Request.Context())
	if err != nil {
		var upErr *indexsync.UpstreamError
		if errors.As(err, &upErr) {
			slog.Error("sync failed", "stage", upErr.Stage, "error", upErr.Err)
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, api.MsgInternalError, err)
		return
	}

	ctx.PureJSON(http.StatusOK, report)
}

// Status returns the report of the most recent pass
//
//	@Summary		Last sync pass
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	indexsync.Report
//	@Failure		404	{object}	api.APIError
//	@Router			/api/v1/sync/status [get]
func (h *SyncHandler) Status(ctx *gin.Context) {
	report := h.svc.LastReport()
	if report == nil {
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeSyncNotRun, "no sync pass has run yet", nil)
		return
	}

	ctx.PureJSON(http.StatusOK, report)
}
