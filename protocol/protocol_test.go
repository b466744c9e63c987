package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagStripRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain", "hello from hub"},
		{"empty", ""},
		{"json telemetry", `{"device_id":"dev-1","channel":"WiFi"}`},
		{"leading space preserved", "  padded content"},
		{"contains marker", "HUB_BROADCAST: nested"},
		{"unicode", "Позор-дом говорит"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tagged := TagHubRelay(tt.content)
			assert.True(t, IsHubRelay(tagged))
			assert.Equal(t, tt.content, StripHubRelay(tagged))
		})
	}
}

func TestStripHubRelayIdentityWhenUntagged(t *testing.T) {
	assert.Equal(t, "no marker here", StripHubRelay("no marker here"))
	assert.Equal(t, "", StripHubRelay(""))
}

func TestEchoIsAlwaysEchoResponse(t *testing.T) {
	for _, component := range []string{"Hub", "Cloud", "Test Hub"} {
		for _, content := range []string{"hi", "", "multi word message"} {
			assert.True(t, IsEchoResponse(Echo(component, content)))
		}
	}
}

func TestWelcomeFormat(t *testing.T) {
	assert.Equal(t, "Welcome to Pozor-dom Hub!", Welcome("Hub"))
	assert.Equal(t, "Welcome to Pozor-dom external client!", Welcome("external client"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    Kind
		content string
	}{
		{"raw chat", "turn on the lights", KindRaw, "turn on the lights"},
		{"hub relay", "HUB_BROADCAST: chat line", KindHubRelay, "chat line"},
		{"cloud labeled", "[CLOUD] from upstairs", KindCloudRelay, "[CLOUD] from upstairs"},
		{"welcome", "Welcome to Pozor-dom Hub!", KindWelcome, "Welcome to Pozor-dom Hub!"},
		{"echo response", "Hub received: hi", KindEchoResponse, "Hub received: hi"},
		{"empty", "", KindRaw, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Classify(tt.text)
			assert.Equal(t, tt.kind, env.Kind)
			assert.Equal(t, tt.content, env.Content)
			assert.Equal(t, tt.text, env.Raw)
		})
	}
}

func TestEchoResponseNeverClassifiedForFurtherEcho(t *testing.T) {
	// An echo of an echo must still classify as an echo response; anything
	// else reopens the infinite reply loop.
	echo := Echo("Cloud", "first message")
	env := Classify(echo)
	require.Equal(t, KindEchoResponse, env.Kind)

	doubled := Echo("Hub", echo)
	assert.Equal(t, KindEchoResponse, Classify(doubled).Kind)
}
