package entities

// Session is what a token request yields: the encoded JWT for REST and
// broker auth, plus the device id and broker host carried in its claims.
// It is owned by the caller and passed explicitly to every collaborator.
type Session struct {
	Server   string `json:"server"`
	Token    string `json:"-"`
	DeviceID string `json:"bot"`
	MQTTHost string `json:"mqtt"`
}

// Valid reports whether the session can be used for REST and MQTT.
func (s Session) Valid() bool {
	return s.Token != "" && s.DeviceID != ""
}
