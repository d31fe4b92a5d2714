package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/roomchat/backend/internal/storage/models"
)

// stubTokens accepts tokens of the form "access:<user>" and "refresh:<user>".
type stubTokens struct{}

func (stubTokens) Validate(token string) bool {
	return len(token) > 7 && (token[:7] == "access:" || token[:8] == "refresh:")
}

func (stubTokens) IsAccessToken(token string) bool {
	return len(token) > 7 && token[:7] == "access:"
}

func (stubTokens) ExtractUserID(token string) (string, error) {
	for i := range token {
		if token[i] == ':' {
			return token[i+1:], nil
		}
	}
	return "", errors.New("no subject")
}

type stubUsers map[string]*models.User

func (s stubUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if id == "broken" {
		return nil, errors.New("db down")
	}
	return s[id], nil
}

func TestResolver_Resolve(t *testing.T) {
	const aliceID = "0b8e4c1e-3c59-4f4d-9f57-6f7c0a1f2b3c"
	avatar := "https://img.example/alice.png"
	users := stubUsers{
		aliceID: {ID: aliceID, DisplayName: "Alice", AvatarURL: &avatar},
		"bob":   {ID: "bob", DisplayName: "Bob"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		legacy bool
		query  url.Values
		want   string
	}{
		{"access token", false, url.Values{"token": {"access:bob"}}, "bob"},
		{"refresh token rejected", false, url.Values{"token": {"refresh:bob"}}, ""},
		{"invalid token", false, url.Values{"token": {"garbage"}}, ""},
		{"unknown user", false, url.Values{"token": {"access:nobody"}}, ""},
		{"lookup failure", false, url.Values{"token": {"access:broken"}}, ""},
		{"no parameters", true, url.Values{}, ""},
		{"legacy disabled", false, url.Values{"userId": {aliceID}}, ""},
		{"legacy enabled", true, url.Values{"userId": {aliceID}}, aliceID},
		{"legacy not a uuid", true, url.Values{"userId": {"bob"}}, ""},
		{"token wins over legacy", true, url.Values{"token": {"access:bob"}, "userId": {aliceID}}, "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(stubTokens{}, users, tt.legacy, logger)
			got := r.Resolve(context.Background(), tt.query)

			if tt.want == "" {
				if got != nil {
					t.Fatalf("Resolve() = %+v, want anonymous", got)
				}
				return
			}
			if got == nil || got.UserID != tt.want {
				t.Fatalf("Resolve() = %+v, want user %q", got, tt.want)
			}
		})
	}
}

func TestResolver_EnrichesProfile(t *testing.T) {
	avatar := "https://img.example/bob.png"
	users := stubUsers{"bob": {ID: "bob", DisplayName: "Bob", AvatarURL: &avatar}}
	r := NewResolver(stubTokens{}, users, false, nil)

	got := r.Resolve(context.Background(), url.Values{"token": {"access:bob"}})
	if got == nil {
		t.Fatal("Resolve() = nil")
	}
	sender := got.Sender()
	if sender.DisplayName != "Bob" || sender.AvatarURL != avatar {
		t.Errorf("Sender() = %+v", sender)
	}
}
