package di

import (
	"context"
	"errors"
	"sync"

	firebaseauth "firebase.google.com/go/v4/auth"

	uc "absensi/internal/application/usecase"
)

// FirebaseAuthProvider implements usecase.AuthProvider against Firebase
// Auth. The outer shell calls SetUser/ClearUser when sign-in state changes;
// this core only observes.
type FirebaseAuthProvider struct {
	client *firebaseauth.Client

	mu  sync.Mutex
	uid string
}

func NewFirebaseAuthProvider(client *firebaseauth.Client) *FirebaseAuthProvider {
	return &FirebaseAuthProvider{client: client}
}

func (p *FirebaseAuthProvider) SetUser(uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uid = uid
}

func (p *FirebaseAuthProvider) ClearUser() {
	p.SetUser("")
}

// CurrentActor returns (nil, nil) when no user is signed in or the user is
// disabled: an absent actor, not an error.
func (p *FirebaseAuthProvider) CurrentActor(ctx context.Context) (*uc.Actor, error) {
	p.mu.Lock()
	uid := p.uid
	p.mu.Unlock()

	if uid == "" {
		return nil, nil
	}
	if p.client == nil {
		return nil, errors.New("di.FirebaseAuthProvider: auth client is nil")
	}

	u, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u.Disabled {
		return nil, nil
	}

	role := ""
	if r, ok := u.CustomClaims["role"].(string); ok {
		role = r
	}
	return &uc.Actor{ID: u.UID, Role: role, Status: "active"}, nil
}

// StaticAuthProvider pins a fixed actor for local development when Firebase
// is not configured.
type StaticAuthProvider struct {
	Actor *uc.Actor
}

func (p *StaticAuthProvider) CurrentActor(context.Context) (*uc.Actor, error) {
	return p.Actor, nil
}
