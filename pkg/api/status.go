package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// EngineControl is the subset of engine.Engine the HTTP surface needs;
// expressed as an interface here so this package doesn't have to know
// about metrics.EngineMetrics' concrete type.
type EngineControl interface {
	Active() bool
	SetActive(bool)
	SamplingProb() float64
	Encap() string
	Stop()
	Stats() map[string]interface{}
}

// ControlService adapts an EngineControl to the three HTTP routes
// Server.RegisterControlService wires up.
type ControlService struct {
	engine EngineControl
}

func NewControlService(engine EngineControl) *ControlService {
	return &ControlService{engine: engine}
}

func (cs *ControlService) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "ok",
		Data: map[string]interface{}{
			"active":        cs.engine.Active(),
			"sampling_prob": cs.engine.SamplingProb(),
			"encap":         cs.engine.Encap(),
			"metrics":       cs.engine.Stats(),
		},
	})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (cs *ControlService) SetActive(c echo.Context) error {
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(c, NewBadRequestError("invalid request body", err))
	}
	cs.engine.SetActive(req.Active)
	return c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "ok"})
}

func (cs *ControlService) Stop(c echo.Context) error {
	cs.engine.Stop()
	return c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "ok"})
}
