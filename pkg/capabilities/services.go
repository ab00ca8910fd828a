package capabilities

import (
	"context"
	"time"

	"github.com/aretw0/jarvis/pkg/ports"
)

// DefaultUser is the user id when the context carries none.
const DefaultUser = "default_user"

type userKey struct{}

// WithUser returns a context whose capabilities act on behalf of userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the user the capabilities act for.
func UserFrom(ctx context.Context) string {
	if id, ok := ctx.Value(userKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultUser
}

// Services are the backends capabilities operate on. Nil backends disable
// the capabilities that need them.
type Services struct {
	Profiles ports.ProfileStore
	Journal  ports.JournalStore
	Calendar ports.Calendar
	Mailbox  ports.Mailbox
	Memories ports.MemoryStore
	Search   ports.Searcher
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s Services) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func schema(required []string, props map[string]any) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func num(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}
