package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/saba-backend/internal/domain"
)

func TestUser_PublicOmitsHash(t *testing.T) {
	t.Parallel()

	user := domain.User{
		ID:           "id-1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$secret",
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(user.Public())
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "passwordHash")
	assert.NotContains(t, string(data), "lastLoginAt", "null lastLoginAt is omitted from the projection")
	assert.True(t, strings.Contains(string(data), `"email":"ada@example.com"`))
}

func TestMetrics_Counter(t *testing.T) {
	t.Parallel()

	var metrics domain.Metrics

	*metrics.Counter(domain.CounterTotalTestsStarted) += 2

	assert.Equal(t, int64(2), metrics.TotalTestsStarted)
	assert.Nil(t, metrics.Counter("bogus"))
}

func TestDefaultInstruction(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		`"Hello, I'm SABA – your AI personality psychologist from IMJD.asia, powered by Sulnaq Consulting and PAITECH under the PECTAA initiative."`,
		"⚙️ BACKEND HOOKS (if available):",
		"Send data to: /mbti/submit or configured backend endpoint.",
		"SABA is not just an AI. She is the empathetic voice of a cognitive revolution in Pakistan",
		"Powered by:\n🌐 IMJD.asia\n🔬 Sulnaq Consulting\n🎓 PAITECH – by PECTAA",
	} {
		assert.Contains(t, domain.DefaultInstruction, line)
	}

	assert.True(t, strings.HasPrefix(domain.DefaultInstruction, "You are SABA, a psychologist-style AI assistant"))
	assert.True(t, strings.HasSuffix(domain.DefaultInstruction, "🎓 PAITECH – by PECTAA"))
}
