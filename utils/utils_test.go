package utils

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cajaoblatos/oblatos34/config"
)

func TestMain(m *testing.M) {
	config.Set(config.AppConfig{JWTSecret: "utils-secret"})
	os.Exit(m.Run())
}

func TestCacheJSONRoundTripAndInvalidate(t *testing.T) {
	type entry struct {
		Name string `json:"name"`
	}
	CacheSetJSON("ranking:test", []entry{{Name: "ana"}}, time.Minute)
	CacheSetJSON("other:test", entry{Name: "beto"}, time.Minute)

	var got []entry
	require.True(t, CacheGetJSON("ranking:test", &got))
	assert.Equal(t, []entry{{Name: "ana"}}, got)

	InvalidateByPrefix("ranking:")
	assert.False(t, CacheGetJSON("ranking:test", &got))

	var other entry
	assert.True(t, CacheGetJSON("other:test", &other))
	assert.Equal(t, "beto", other.Name)
}

func TestCooldownTrySet(t *testing.T) {
	assert.True(t, CooldownTrySet("recover:a@example.com", time.Minute))
	assert.False(t, CooldownTrySet("recover:a@example.com", time.Minute))
	assert.True(t, CooldownTrySet("recover:b@example.com", time.Minute))

	assert.True(t, CooldownTrySet("short", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, CooldownTrySet("short", time.Millisecond))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(7, "padre", time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "padre", claims.Username)

	expired, err := GenerateToken(7, "padre", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))

	a, err := RandomHex(32)
	require.NoError(t, err)
	b, err := RandomHex(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Kermés anual", SanitizeText("  <b>Kermés</b> anual <script>x()</script> "))
	assert.Equal(t, "Tom &amp; Jerry", Sanitize("Tom & Jerry"))
	assert.NotContains(t, Sanitize(`<a href="javascript:alert(1)">x</a><p>ok</p>`), "javascript")
}
