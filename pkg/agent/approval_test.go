package agent_test

import (
	"testing"

	"github.com/aretw0/jarvis/pkg/agent"
	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier_Fixtures(t *testing.T) {
	approve := []string{
		"yes", "Y", "ok", "sure", "send", "send it", "approve", "confirm",
		"Yes!", "yes please", "ok send it", "sure thing", "  YES  ",
	}
	decline := []string{
		"no", "No.", "don't", "don't send it", "cancel", "stop", "no thanks",
		"please cancel that email", "stop, I changed my mind",
	}
	revise := []string{
		"", "hmm", "maybe later", "change the subject", "no, change the subject",
		"yes but modify the greeting", "can you edit the body first", "please update the time",
		"yes, please send it right now to everyone", "I think now is fine",
	}

	c := agent.KeywordClassifier{}
	for _, reply := range approve {
		assert.Equal(t, agent.VerdictApprove, c.Classify(reply), "reply %q", reply)
	}
	for _, reply := range decline {
		assert.Equal(t, agent.VerdictDecline, c.Classify(reply), "reply %q", reply)
	}
	for _, reply := range revise {
		assert.Equal(t, agent.VerdictRevise, c.Classify(reply), "reply %q", reply)
	}
}
