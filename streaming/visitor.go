// Package streaming publishes registration progress over MQTT, for
// long-running registration jobs whose progress a separate process wants to
// observe. It is an external collaborator: registration only depends on
// the Visitor interface, never on this package.
package streaming

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/fourpcs/registration"
)

type progressReport struct {
	Fraction  float64           `json:"fraction"`
	BestLCP   float64           `json:"bestLcp"`
	Transform registration.Mat4 `json:"transform"`
	Timestamp int64             `json:"timestamp"`
}

// Publisher is the subset of mqtt.Client that MQTTVisitor needs, so tests
// can supply a lightweight double instead of a full mqtt.Client mock.
type Publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTVisitor publishes a JSON progressReport on every call to Report.
// Candidate-level reports (negative fraction) are only published when
// Verbose is set, to keep the default publish rate at one message per
// RANSAC trial.
type MQTTVisitor struct {
	client Publisher
	topic  string
	qos    byte
	retain bool

	Verbose bool
}

// NewMQTTVisitor builds a visitor publishing to topic on client, with QoS 0
// and retain enabled.
func NewMQTTVisitor(client Publisher, topic string) *MQTTVisitor {
	return &MQTTVisitor{
		client: client,
		topic:  topic,
		qos:    0,
		retain: true,
	}
}

// SetQoS overrides the publish QoS level (0, 1, or 2).
func (v *MQTTVisitor) SetQoS(qos byte) {
	if qos <= 2 {
		v.qos = qos
	}
}

// SetRetain overrides whether published messages are retained.
func (v *MQTTVisitor) SetRetain(retain bool) {
	v.retain = retain
}

// Report implements registration.Visitor.
func (v *MQTTVisitor) Report(fraction, bestLCP float64, transform registration.Mat4) {
	if fraction < 0 && !v.Verbose {
		return
	}
	if v.client == nil || !v.client.IsConnected() {
		return
	}

	report := progressReport{
		Fraction:  fraction,
		BestLCP:   bestLCP,
		Transform: transform,
		Timestamp: time.Now().Unix(),
	}
	payload, err := json.Marshal(report)
	if err != nil {
		log.Printf("[STREAM] marshaling progress report: %v", err)
		return
	}

	token := v.client.Publish(v.topic, v.qos, v.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		log.Printf("[STREAM] publishing to %s: %v", v.topic, token.Error())
	}
}

// NeedsGlobalTransformation implements registration.Visitor: subscribers
// expect the transform to already include the centroid recentering so it
// applies directly to their own copy of the original point clouds.
func (v *MQTTVisitor) NeedsGlobalTransformation() bool { return true }
