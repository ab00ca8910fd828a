package capabilities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/jarvis/pkg/agent"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
)

// GmailTools returns the mailbox tools of the gmail sub-agent. Sending always
// passes the approval gate.
func GmailTools(svc Services) []registry.Capability {
	box := svc.Mailbox

	search := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "search_emails",
			Description: "Search received emails by free text, sender or subject.",
			Parameters: schema(nil, map[string]any{
				"query":       str("Free text."),
				"sender":      str("Sender address or name."),
				"subject":     str("Words of the subject."),
				"max_results": integer("Default 10."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Query   string `mapstructure:"query"`
				Sender  string `mapstructure:"sender"`
				Subject string `mapstructure:"subject"`
				Max     int    `mapstructure:"max_results"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if in.Max <= 0 {
				in.Max = 10
			}
			query := strings.TrimSpace(strings.Join([]string{in.Query, in.Sender, in.Subject}, " "))
			found, err := box.Search(ctx, firstNonEmpty(in.Query, in.Sender, in.Subject), 0)
			if err != nil {
				return domain.Result{}, err
			}
			var hits []domain.Email
			for _, e := range found {
				if matches(e.From, in.Sender) && matches(e.Subject, in.Subject) {
					hits = append(hits, e)
				}
				if len(hits) == in.Max {
					break
				}
			}
			if len(hits) == 0 {
				return domain.OK(fmt.Sprintf("No emails found for %q.", query)), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Found %d email(s):", len(hits))
			for i, e := range hits {
				fmt.Fprintf(&b, "\n%d. [%s] From: %s | Subject: %s | %s\n   %s",
					i+1, e.ID, e.From, e.Subject, e.Timestamp.Format("Jan 2 15:04"), snippet(e.Body, 80))
			}
			return domain.OK(b.String()), nil
		},
	}

	read := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "read_email",
			Description: "Read the full content of an email by id.",
			Parameters:  schema([]string{"email_id"}, map[string]any{"email_id": str("Email id from search_emails.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			id, _ := args["email_id"].(string)
			e, err := box.Get(ctx, id)
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			return domain.OK(fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\nDate: %s\n\n%s",
				e.From, e.To, e.Subject, e.Timestamp.Format("Mon Jan 2 15:04"), e.Body)), nil
		},
	}

	compose := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "compose_email",
			Description: "Prepare a draft and show it to the user. Nothing is sent.",
			Parameters:  emailSchema(),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			draft, err := decodeEmail(args)
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			saved, err := box.SaveDraft(ctx, draft)
			if err != nil {
				return domain.Result{}, err
			}
			return domain.OK(fmt.Sprintf("Draft %s ready:\nTo: %s\nSubject: %s\n\n%s\n\nShow it to the user, then call send_email to send it.",
				saved.ID, saved.To, saved.Subject, saved.Body)), nil
		},
	}

	reply := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "compose_reply",
			Description: "Prepare a reply draft to an email. Nothing is sent.",
			Parameters: schema([]string{"email_id", "body"}, map[string]any{
				"email_id": str("Email to reply to."),
				"body":     str("Reply text."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				EmailID string `mapstructure:"email_id"`
				Body    string `mapstructure:"body"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			orig, err := box.Get(ctx, in.EmailID)
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			subject := orig.Subject
			if !strings.HasPrefix(strings.ToLower(subject), "re:") {
				subject = "Re: " + subject
			}
			saved, err := box.SaveDraft(ctx, domain.Email{ThreadID: orig.ID, To: orig.From, Subject: subject, Body: in.Body})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.OK(fmt.Sprintf("Reply draft %s ready:\nTo: %s\nSubject: %s\n\n%s\n\nShow it to the user, then call send_email to send it.",
				saved.ID, saved.To, saved.Subject, saved.Body)), nil
		},
	}

	send := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:             "send_email",
			Description:      "Send an email. The user is asked to approve the exact message first. Sending ends the task.",
			Parameters:       emailSchema(),
			RequiresApproval: true,
			Completes:        true,
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			msg, err := decodeEmail(args)
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			draft, err := box.SaveDraft(ctx, msg)
			if err != nil {
				return domain.Result{}, err
			}
			sent, err := box.Send(ctx, draft.ID)
			if err != nil {
				return domain.Result{}, err
			}
			return domain.OK(fmt.Sprintf("Email sent to %s: %s", sent.To, sent.Subject)), nil
		},
	}

	return []registry.Capability{search, read, compose, reply, send}
}

// Gmail builds the gmail_handler sub-agent.
func Gmail(oracle ports.Oracle, svc Services, opts ...agent.Option) (agent.SubAgent, error) {
	return subAgent("gmail", oracle, GmailTools(svc), domain.CapabilityDescriptor{
		Name: "gmail_handler",
		Description: "Use for ALL email tasks: searching, reading, sending and replying. " +
			"It asks the user to approve every message before sending.",
	}, opts)
}

func emailSchema() map[string]any {
	return schema([]string{"to", "subject", "body"}, map[string]any{
		"to":      str("Recipient address."),
		"subject": str("Subject."),
		"body":    str("Plain text body."),
	})
}

func decodeEmail(args map[string]any) (domain.Email, error) {
	var in struct {
		To      string `mapstructure:"to"`
		Subject string `mapstructure:"subject"`
		Body    string `mapstructure:"body"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return domain.Email{}, err
	}
	if !strings.Contains(in.To, "@") {
		return domain.Email{}, errors.New("to must be an email address")
	}
	return domain.Email{To: strings.TrimSpace(in.To), Subject: in.Subject, Body: in.Body}, nil
}

func matches(field, filter string) bool {
	return filter == "" || strings.Contains(strings.ToLower(field), strings.ToLower(filter))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func snippet(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
