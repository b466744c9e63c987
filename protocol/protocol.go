// Package protocol implements the text-frame wire protocol shared by the hub
// and the cloud relay: prefix markers, frame constructors, and a total
// classification function. All functions are pure.
package protocol

import "strings"

// Wire markers (case-sensitive).
const (
	HubRelayPrefix = "HUB_BROADCAST:"
	CloudLabel     = "[CLOUD]"
	HubLabel       = "[HUB]"
	welcomePrefix  = "Welcome to Pozor-dom"
	echoMarker     = "received:"
)

// Kind classifies a text frame. Classification happens once, at the protocol
// boundary; downstream code switches on Kind instead of re-checking prefixes.
type Kind int

const (
	// KindRaw is plain chat/relay content.
	KindRaw Kind = iota
	// KindWelcome is the per-connection greeting frame.
	KindWelcome
	// KindEchoResponse acknowledges receipt to a sender. Exempt from any
	// further echo; echoing an echo would loop forever.
	KindEchoResponse
	// KindHubRelay is content tagged to be forwarded exactly one hop,
	// stripped, and never re-tagged.
	KindHubRelay
	// KindCloudRelay is content display-tagged as originating from the cloud.
	KindCloudRelay
)

// Envelope is a classified text frame. Content carries the payload with the
// hub-relay marker already stripped; Raw is the frame exactly as received.
type Envelope struct {
	Kind    Kind
	Content string
	Raw     string
}

// Classify derives the envelope for a received frame. Total: every string
// maps to exactly one kind.
func Classify(text string) Envelope {
	switch {
	case strings.HasPrefix(text, HubRelayPrefix):
		return Envelope{Kind: KindHubRelay, Content: StripHubRelay(text), Raw: text}
	case strings.HasPrefix(text, CloudLabel):
		return Envelope{Kind: KindCloudRelay, Content: text, Raw: text}
	case strings.HasPrefix(text, welcomePrefix):
		return Envelope{Kind: KindWelcome, Content: text, Raw: text}
	case IsEchoResponse(text):
		return Envelope{Kind: KindEchoResponse, Content: text, Raw: text}
	default:
		return Envelope{Kind: KindRaw, Content: text, Raw: text}
	}
}

// TagHubRelay marks content for one-hop forwarding.
func TagHubRelay(content string) string {
	return HubRelayPrefix + " " + content
}

// IsHubRelay reports whether the frame carries the hub-relay marker.
func IsHubRelay(text string) bool {
	return strings.HasPrefix(text, HubRelayPrefix)
}

// StripHubRelay removes the hub-relay marker and the single separator space
// added by TagHubRelay. Identity for untagged frames, so
// StripHubRelay(TagHubRelay(s)) == s for every s, including strings with
// leading whitespace of their own.
func StripHubRelay(text string) string {
	stripped, ok := strings.CutPrefix(text, HubRelayPrefix)
	if !ok {
		return text
	}
	if rest, cut := strings.CutPrefix(stripped, " "); cut {
		return rest
	}
	return stripped
}

// IsEchoResponse reports whether the frame is an acknowledgment. The fixed
// "received:" marker may appear anywhere in the frame.
func IsEchoResponse(text string) bool {
	return strings.Contains(text, echoMarker)
}

// Welcome builds the one-time greeting for a new connection.
func Welcome(component string) string {
	return welcomePrefix + " " + component + "!"
}

// Echo builds the acknowledgment a component sends back to the original
// sender. The result always satisfies IsEchoResponse.
func Echo(component, content string) string {
	return component + " " + echoMarker + " " + content
}

// Label prefixes content with a display label such as CloudLabel or HubLabel.
func Label(prefix, content string) string {
	return prefix + " " + content
}
