package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kwv/fourpcs/registration"
)

func TestMQTTVisitorPublishesOnReport(t *testing.T) {
	pub := newMockPublisher()
	v := NewMQTTVisitor(pub, "fourpcs/progress")

	v.Report(0.5, 0.73, registration.Identity4())

	payloads := pub.publishedPayloads()
	if assert.Len(t, payloads, 1) {
		var report progressReport
		assert.NoError(t, json.Unmarshal(payloads[0], &report))
		assert.InDelta(t, 0.5, report.Fraction, 1e-9)
		assert.InDelta(t, 0.73, report.BestLCP, 1e-9)
	}
}

func TestMQTTVisitorSkipsCandidateReportsUnlessVerbose(t *testing.T) {
	pub := newMockPublisher()
	v := NewMQTTVisitor(pub, "fourpcs/progress")

	v.Report(-1, 0.1, registration.Identity4())
	assert.Empty(t, pub.publishedPayloads())

	v.Verbose = true
	v.Report(-1, 0.1, registration.Identity4())
	assert.Len(t, pub.publishedPayloads(), 1)
}

func TestMQTTVisitorSkipsWhenDisconnected(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("IsConnected").Return(false)
	v := NewMQTTVisitor(pub, "fourpcs/progress")

	v.Report(1.0, 0.9, registration.Identity4())
	assert.Empty(t, pub.publishedPayloads())
}

func TestMQTTVisitorNeedsGlobalTransformation(t *testing.T) {
	v := NewMQTTVisitor(newMockPublisher(), "fourpcs/progress")
	assert.True(t, v.NeedsGlobalTransformation())
}
