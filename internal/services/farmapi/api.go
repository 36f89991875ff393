package farmapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/internal/model/entities"
)

var (
	// ErrNoReading is returned when the web app has no reading for a pin.
	ErrNoReading = errors.New("no sensor reading")
	// ErrNoSession is returned for calls made without a valid token.
	ErrNoSession = errors.New("no valid session")
)

type tokenRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

type tokenResponse struct {
	Token struct {
		Encoded   string        `json:"encoded"`
		Unencoded model.Session `json:"unencoded"`
	} `json:"token"`
}

// CreateToken logs in and returns the session used by every other call and
// by the broker connection.
func (c *Client) CreateToken(ctx context.Context, email, password string) (model.Session, error) {
	if email == "" || password == "" {
		return model.Session{}, errors.New("email and password are required")
	}
	var in tokenRequest
	in.User.Email = email
	in.User.Password = password

	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/tokens", "", in, &out); err != nil {
		return model.Session{}, fmt.Errorf("create token: %w", err)
	}
	s := out.Token.Unencoded
	s.Server = c.server
	s.Token = out.Token.Encoded
	if !s.Valid() {
		return model.Session{}, errors.New("create token: response without token or device id")
	}
	L.Info("farmbot session created", "device", s.DeviceID, "mqtt", s.MQTTHost)
	return s, nil
}

func (c *Client) get(ctx context.Context, s model.Session, path string, out any) error {
	if !s.Valid() {
		return fmt.Errorf("GET %s: %w", path, ErrNoSession)
	}
	return c.do(ctx, http.MethodGet, path, s.Token, nil, out)
}

// Points returns every point of the garden, plants or not.
func (c *Client) Points(ctx context.Context, s model.Session) ([]model.Point, error) {
	var out []model.Point
	if err := c.get(ctx, s, "/api/points", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Plants returns the points of type Plant in web app order.
func (c *Client) Plants(ctx context.Context, s model.Session) ([]model.Plant, error) {
	points, err := c.Points(ctx, s)
	if err != nil {
		return nil, err
	}
	return entities.PlantSet(points)
}

// LatestSensorReading returns the newest reading recorded for pin.
func (c *Client) LatestSensorReading(ctx context.Context, s model.Session, pin int) (model.SensorReading, error) {
	var all []model.SensorReading
	if err := c.get(ctx, s, "/api/sensor_readings", &all); err != nil {
		return model.SensorReading{}, err
	}
	var (
		latest model.SensorReading
		found  bool
	)
	for _, r := range all {
		if r.Pin != pin {
			continue
		}
		if !found || r.CreatedAt.After(latest.CreatedAt) {
			latest, found = r, true
		}
	}
	if !found {
		return model.SensorReading{}, fmt.Errorf("pin %d: %w", pin, ErrNoReading)
	}
	return latest, nil
}

// Sequence is a stored sequence; only what is needed to find one by id.
type Sequence struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Tool is a mountable tool.
type Tool struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

func (c *Client) Sequences(ctx context.Context, s model.Session) ([]Sequence, error) {
	var out []Sequence
	if err := c.get(ctx, s, "/api/sequences", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Tools(ctx context.Context, s model.Session) ([]Tool, error) {
	var out []Tool
	if err := c.get(ctx, s, "/api/tools", &out); err != nil {
		return nil, err
	}
	return out, nil
}
