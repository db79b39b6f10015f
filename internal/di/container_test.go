package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofofcorn/farmer-fred/internal/adapters/inbound"
	"github.com/proofofcorn/farmer-fred/internal/api"
	"github.com/proofofcorn/farmer-fred/internal/core"
	"github.com/proofofcorn/farmer-fred/internal/ports"
	"github.com/proofofcorn/farmer-fred/internal/scheduler"
)

const leadEmail = "From: Dana <dana@farmland.example>\r\n" +
	"To: fred@proofofcorn.com\r\n" +
	"Subject: Land for lease\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"We have 40 acres available near Ames.\r\n"

func TestCLIContainerTriagesIntoMemory(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{MaxBodySize: 10000, AgentEmail: "fred@proofofcorn.com"})
	require.NoError(t, err)

	var msg *core.InboundMessage
	err = container.Invoke(func(listener ports.InboundListener) error {
		assert.IsType(t, &inbound.CLIProcessor{}, listener)
		var err error
		msg, err = listener.ProcessMessage(context.Background(), "", []byte(leadEmail))
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, core.CategoryLead, msg.Category)

	err = container.Invoke(func(inbox *core.Inbox, transport core.MailTransport) {
		assert.Nil(t, transport)
		stored, err := inbox.Get(context.Background(), msg.ID)
		require.NoError(t, err)
		assert.Equal(t, "dana@farmland.example", stored.From)
	})
	require.NoError(t, err)
}

func TestServerContainerResolves(t *testing.T) {
	t.Setenv("FARMER_FRED_LLM_PROVIDER", "openai")
	t.Setenv("FARMER_FRED_OPENAI_API_KEY", "sk-test")
	t.Setenv("FARMER_FRED_ADMIN_PASSWORD", "secret")

	container, err := BuildContainer()
	require.NoError(t, err)

	err = container.Invoke(func(
		server *api.Server,
		sched *scheduler.Scheduler,
		listener ports.InboundListener,
		constitution *core.Constitution,
		replies *core.ReplyService,
		learnings *core.LearningStore,
	) {
		assert.NotNil(t, server)
		assert.NotNil(t, replies)
		assert.NotNil(t, learnings)
		assert.NotNil(t, sched)
		assert.IsType(t, &inbound.SMTPListener{}, listener)
		assert.Equal(t, "Farmer Fred", constitution.Name)
	})
	require.NoError(t, err)
}
