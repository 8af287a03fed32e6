package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/kvstore"
	"axiapac.com/punchsync/push"
	"axiapac.com/punchsync/web/common"
	"github.com/gin-gonic/gin"
)

type PushEndpoint struct {
	scheduler *push.Scheduler
	runner    *push.Runner
	sessions  push.SessionSource
	store     kvstore.Store
}

func NewPushEndpoint(scheduler *push.Scheduler, runner *push.Runner, sessions push.SessionSource, store kvstore.Store) *PushEndpoint {
	return &PushEndpoint{scheduler: scheduler, runner: runner, sessions: sessions, store: store}
}

type PushResponse struct {
	push.Result
	Message string `json:"message"`
}

func pushStatus(res push.Result) int {
	switch res.Outcome {
	case push.AlreadyRunning:
		return http.StatusConflict
	case push.Failed:
		if errors.Is(res.Err, core.ErrNoSession) {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	}
	return http.StatusOK
}

// Push runs one cycle now with the stored settings.
func (ep *PushEndpoint) Push(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := ep.sessions.Current(ctx)
	if err != nil && !errors.Is(err, core.ErrNoSession) {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	_, opts := ep.runner.Settings(ctx)
	res := ep.scheduler.Push(ctx, sess, opts)
	c.JSON(pushStatus(res), common.NewSuccessResponse(PushResponse{Result: res, Message: res.Message()}))
}

type PushSettings struct {
	FrequencyMinutes int  `json:"frequencyMinutes" binding:"min=1"`
	BatchSize        int  `json:"batchSize" binding:"min=1"`
	Running          bool `json:"running"`
}

func (ep *PushEndpoint) Status(c *gin.Context) {
	frequency, opts := ep.runner.Settings(c.Request.Context())
	c.JSON(http.StatusOK, common.NewSuccessResponse(PushSettings{
		FrequencyMinutes: int(frequency.Minutes()),
		BatchSize:        opts.BatchSize,
		Running:          ep.scheduler.Running(),
	}))
}

// UpdateSettings stores the frequency and batch size the runner reads
// before every cycle.
func (ep *PushEndpoint) UpdateSettings(c *gin.Context) {
	var settings PushSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	ctx := c.Request.Context()
	if err := ep.store.Set(ctx, kvstore.KeyPushFrequency, strconv.Itoa(settings.FrequencyMinutes)); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if err := ep.store.Set(ctx, kvstore.KeyBatchSize, strconv.Itoa(settings.BatchSize)); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	ep.Status(c)
}
