package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/notify"
)

func testRecords() []domain.BidRecord {
	return []domain.BidRecord{
		{
			ID:          "aaaa000011112222",
			ProjectName: "某市智慧校园建设项目",
			Budget:      "120万元",
			Purchaser:   "某市教育局",
			DocTime:     "2025年1月6日起",
			SourceURL:   "https://example.com/a/1",
			SourceTitle: "采购公告",
		},
		{
			ID:          "bbbb000011112222",
			ProjectName: "档案数字化服务项目",
			Budget:      "45万元",
			Purchaser:   "某区档案馆",
			DocTime:     "2025年1月7日起",
			SourceURL:   "https://example.com/a/2",
		},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	subject, body, err := notify.Render(testRecords())
	require.NoError(t, err)

	assert.Equal(t, "发现 2 条新招标信息", subject)
	assert.Contains(t, body, "某市智慧校园建设项目")
	assert.Contains(t, body, "120万元")
	assert.Contains(t, body, "某市教育局")
	assert.Contains(t, body, `href="https://example.com/a/1"`)
	// Records without a source title fall back to a generic link text.
	assert.Contains(t, body, "链接")
}

func TestEmailConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := notify.EmailConfig{
		Enabled:    true,
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
		Sender:     "bids@example.com",
		Password:   "secret",
		Recipients: []string{"ops@example.com"},
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(*notify.EmailConfig){
		"missing host":       func(c *notify.EmailConfig) { c.SMTPHost = "" },
		"missing port":       func(c *notify.EmailConfig) { c.SMTPPort = 0 },
		"missing sender":     func(c *notify.EmailConfig) { c.Sender = "" },
		"missing password":   func(c *notify.EmailConfig) { c.Password = "" },
		"missing recipients": func(c *notify.EmailConfig) { c.Recipients = nil },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	// A disabled config is always valid, however incomplete.
	disabled := notify.EmailConfig{Enabled: false}
	assert.NoError(t, disabled.Validate())
}

func TestEmailNotifier_DisabledDropsBatch(t *testing.T) {
	t.Parallel()

	n, err := notify.NewEmailNotifier(notify.EmailConfig{Enabled: false}, nil)
	require.NoError(t, err)

	assert.NoError(t, n.Send(context.Background(), testRecords()))
}

func TestEmailNotifier_EmptyBatchIsNoOp(t *testing.T) {
	t.Parallel()

	n, err := notify.NewEmailNotifier(notify.EmailConfig{Enabled: false}, nil)
	require.NoError(t, err)

	assert.NoError(t, n.Send(context.Background(), nil))
}

func TestNewEmailNotifier_RejectsIncompleteConfig(t *testing.T) {
	t.Parallel()

	_, err := notify.NewEmailNotifier(notify.EmailConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
	}, nil)
	assert.Error(t, err)
}
