package identity

import "testing"

func TestExtractPhoneHandle(t *testing.T) {
	id := Extract("iMessage;+15551234567")
	if id.Phone != "+15551234567" || id.Email != "" || id.IsGroup {
		t.Fatalf("Extract() = %+v", id)
	}
}

func TestExtractEmailHandle(t *testing.T) {
	id := Extract("SMS;john@example.com")
	if id.Email != "john@example.com" || id.Phone != "" || id.IsGroup {
		t.Fatalf("Extract() = %+v", id)
	}
}

func TestExtractGroupHandle(t *testing.T) {
	id := Extract("iMessage;+;chat447317884837")
	if !id.IsGroup {
		t.Fatalf("Extract() = %+v, want group", id)
	}
	if id.Phone != "" || id.Email != "" {
		t.Fatalf("group identity carries no address: %+v", id)
	}
}

func TestExtractBareAddress(t *testing.T) {
	id := Extract("+15551234567")
	if id.Phone != "+15551234567" {
		t.Fatalf("Extract() = %+v", id)
	}
}

func TestExtractAtMostOneAddress(t *testing.T) {
	for _, handle := range []string{
		"iMessage;+15551234567",
		"SMS;john@example.com",
		"chat99182734651029",
		"iMessage;-;+447700900123",
	} {
		id := Extract(handle)
		if id.Phone != "" && id.Email != "" {
			t.Errorf("Extract(%q) set both phone and email: %+v", handle, id)
		}
	}
}

func TestStripServicePrefixOrder(t *testing.T) {
	// Longest prefix must win so "iMessage;-;" is not half-stripped.
	got := StripServicePrefix("iMessage;-;+15551234567", DefaultServicePrefixes)
	if got != "+15551234567" {
		t.Fatalf("StripServicePrefix() = %q", got)
	}
}

func TestFormatPhone(t *testing.T) {
	for in, want := range map[string]string{
		"+15551234567":   "+1 (555) 123-4567",
		"5551234567":     "(555) 123-4567",
		"+447700900123":  "+447700900123",
		"(555) 123-4567": "(555) 123-4567",
	} {
		if got := FormatPhone(in); got != want {
			t.Errorf("FormatPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractGroupID(t *testing.T) {
	if id, ok := ExtractGroupID("any;prefix;chat447317884837"); !ok || id != "chat447317884837" {
		t.Fatalf("ExtractGroupID() = %q, %v", id, ok)
	}
	if _, ok := ExtractGroupID("iMessage;+15551234567"); ok {
		t.Fatalf("ExtractGroupID() matched a phone handle")
	}
}
