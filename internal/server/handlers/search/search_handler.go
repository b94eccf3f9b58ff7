package search

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/dropsearch/internal/indexsync"
	"github.com/openmined/dropsearch/internal/server/handlers/api"
)

// Querier syncs the index and runs a phrase search
type Querier interface {
	Query(ctx context.Context, phrase string) ([]*indexsync.Match, error)
}

type SearchHandler struct {
	svc Querier
}

func New(svc Querier) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search brings the index up to date with remote storage and returns the matches for q
//
//	@Summary		Phrase search
//	@Description	Syncs the index, then returns shared links of files containing the phrase
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"phrase to search for"
//	@Success		200	{array}		indexsync.Match
//	@Failure		400	{object}	api.APIError
//	@Failure		429	{object}	api.APIError
//	@Failure		500	{object}	api.APIError
//	@Router			/search [get]
func (h *SearchHandler) Search(ctx *gin.Context) {
	matches, err := h.svc.Query(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		abortWithQueryError(ctx, err)
		return
	}

	ctx.PureJSON(http.StatusOK, matches)
}

// abortWithQueryError maps the error taxonomy onto HTTP. Anything that is not a
// validation error is reported as one opaque failure.
func abortWithQueryError(ctx *gin.Context, err error) {
	var valErr *indexsync.ValidationError
	if errors.As(err, &valErr) {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, valErr.Message, err)
		return
	}

	var upErr *indexsync.UpstreamError
	if errors.As(err, &upErr) {
		slog.Error("search failed", "stage", upErr.Stage, "error", upErr.Err)
	} else {
		slog.Error("search failed", "error", err)
	}

	api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, api.MsgInternalError, err)
}
