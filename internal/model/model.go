package model

import (
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model/entities"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	Point          = entities.Point
	Plant          = entities.Plant
	Tour           = entities.Tour
	ForecastSample = entities.ForecastSample
	Forecast       = entities.Forecast
	SensorReading  = entities.SensorReading
	Session        = entities.Session

	CeleryNode = messages.CeleryNode
	RPCReply   = messages.RPCReply
)

const (
	PointerTypePlant = entities.PointerTypePlant
	ForecastHours    = entities.ForecastHours
	PinModeDigital   = entities.PinModeDigital
	PinModeAnalog    = entities.PinModeAnalog
)

var (
	ErrInvalidArgument = entities.ErrInvalidArgument
	ErrDataIncomplete  = entities.ErrDataIncomplete
)
