package Models

// DeviceTokenRequest registers a device's FCM registration token for the
// push sent when the day's tasks are ready.
type DeviceTokenRequest struct {
	Value string `json:"value" validate:"required"`
}
