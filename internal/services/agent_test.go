package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMetadata(t *testing.T) {
	deep := strings.Repeat(`{"a":`, 9) + `1` + strings.Repeat(`}`, 9)

	tests := []struct {
		raw string
		msg string
	}{
		{`{"model":"x","version":2,"beta":true,"extra":{"k":"v"}}`, ""},
		{`{}`, ""},
		{`[1,2]`, "Metadata must be an object (arrays are not allowed)."},
		{`"text"`, "Metadata must be an object (arrays are not allowed)."},
		{`null`, "Metadata must be an object (arrays are not allowed)."},
		{`{"list":[1]}`, "Metadata values must be strings, numbers, booleans or objects."},
		{`{"nothing":null}`, "Metadata values must be strings, numbers, booleans or objects."},
		{deep, "Metadata is nested too deeply."},
	}
	for _, tt := range tests {
		m, err := ParseMetadata(json.RawMessage(tt.raw))
		if tt.msg != "" {
			expectKind(t, err, KindValidation, tt.msg)
			continue
		}
		if err != nil {
			t.Errorf("ParseMetadata(%s) failed: %v", tt.raw, err)
			continue
		}
		if m == nil {
			t.Errorf("ParseMetadata(%s) returned nil map", tt.raw)
		}
	}
}

func TestNormalizeWallet(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"},
		{" 0x52908400098527886e0f7030069857d2e4169ee7 ", "0x52908400098527886E0F7030069857D2E4169EE7"},
		{"0x1234", "0x1234"},
	}
	for _, tt := range tests {
		if got := NormalizeWallet(tt.in); got != tt.want {
			t.Errorf("NormalizeWallet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent, _ := env.claimedAgent(t, "profile_bot")

	updated, err := env.agents.UpdateProfile(ctx, agent.ID, ProfileUpdate{
		Description: json.RawMessage(`"new description"`),
		Metadata:    json.RawMessage(`{"framework":"custom","tools":{"search":true}}`),
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Description != "new description" {
		t.Errorf("description not updated: %s", updated.Description)
	}
	if updated.Metadata["framework"] != "custom" {
		t.Errorf("metadata not updated: %v", updated.Metadata)
	}

	_, err = env.agents.UpdateProfile(ctx, agent.ID, ProfileUpdate{})
	expectKind(t, err, KindValidation, "No changes to update.")

	_, err = env.agents.UpdateProfile(ctx, agent.ID, ProfileUpdate{Description: json.RawMessage(`5`)})
	expectKind(t, err, KindValidation, "Description must be a string.")

	_, err = env.agents.UpdateProfile(ctx, agent.ID, ProfileUpdate{Description: json.RawMessage(`"  "`)})
	expectKind(t, err, KindValidation, "Description: Please enter content.")

	_, err = env.agents.UpdateProfile(ctx, agent.ID, ProfileUpdate{Metadata: json.RawMessage(`[]`)})
	expectKind(t, err, KindValidation, "Metadata must be an object (arrays are not allowed).")
}

func TestProfileLookup(t *testing.T) {
	env := newTestEnv(t)
	env.claimedAgent(t, "public_bot")

	agent, err := env.agents.Profile(context.Background(), "public_bot")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if agent.Name != "public_bot" || !agent.IsClaimed {
		t.Errorf("unexpected agent %+v", agent)
	}

	_, err = env.agents.Profile(context.Background(), "nobody_here")
	expectKind(t, err, KindNotFound, "Agent not found.")
}

func TestRequireClaimed(t *testing.T) {
	if err := RequireClaimed(true); err != nil {
		t.Errorf("claimed agent rejected: %v", err)
	}
	err := RequireClaimed(false)
	expectKind(t, err, KindAuthorization, "Agent is not verified yet.")
	if AsError(err).Hint != "Human owner must complete verification via claim_url." {
		t.Errorf("unexpected hint %q", AsError(err).Hint)
	}
}
