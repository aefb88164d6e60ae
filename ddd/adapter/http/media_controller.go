package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Patricklolilol/ffmpeg-service/ddd/application/app"
	"github.com/Patricklolilol/ffmpeg-service/ddd/application/dto"
	"github.com/Patricklolilol/ffmpeg-service/pkg/errno"
	"github.com/Patricklolilol/ffmpeg-service/pkg/restapi"
)

// MediaController exposes the job lifecycle over HTTP.
type MediaController struct {
	mediaApp app.MediaApp
}

// NewMediaController creates the controller.
func NewMediaController(mediaApp app.MediaApp) *MediaController {
	return &MediaController{mediaApp: mediaApp}
}

// Process accepts a new media URL for asynchronous processing.
func (c *MediaController) Process(ctx *gin.Context) {
	var req dto.ProcessRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrInvalidParam)
		return
	}

	resp, err := c.mediaApp.Submit(ctx.Request.Context(), req.MediaURL)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Accepted(ctx, resp)
}

// Info returns the job record projection. The id may come from the query
// string, a JSON body, or the path parameter, so both polling styles work.
func (c *MediaController) Info(ctx *gin.Context) {
	jobID := ctx.Param("job_id")
	if jobID == "" {
		jobID = ctx.Query("job_id")
	}
	if jobID == "" {
		var req dto.InfoRequest
		if err := ctx.ShouldBindJSON(&req); err == nil {
			jobID = req.JobID
		}
	}

	resp, err := c.mediaApp.Info(ctx.Request.Context(), jobID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// Cancel withdraws a still-queued job.
func (c *MediaController) Cancel(ctx *gin.Context) {
	resp, err := c.mediaApp.Cancel(ctx.Request.Context(), ctx.Param("job_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// Download streams a produced artifact from local disk.
func (c *MediaController) Download(ctx *gin.Context) {
	path, err := c.mediaApp.ArtifactPath(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	ctx.File(path)
}
