package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormattedDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1,250.5", "1250.5", false},
		{"USDT 1,250.5", "1250.5", false},
		{"-20,000", "-20000", false},
		{"  42 usdt ", "42", false},
		{"0.00000001", "0.00000001", false},
		{"", "", true},
		{"abc", "", true},
		{"USDT", "", true},
		{"12a", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormattedDecimal(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), got.String())
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, SplitAndTrim("  "))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, SplitAndTrim(" https://a.example, ,https://b.example "))
}

func TestUniqueSlice(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, UniqueSlice([]int{3, 1, 3, 2, 1}))
}

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, err := JwtGenerate(7, "session-1", time.Hour)
	require.NoError(t, err)

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.ID)
	assert.Equal(t, "session-1", claims.Id)

	t.Setenv("API_SECRET", "other-secret")
	_, err = ParseClaims(token)
	assert.Error(t, err)
}

func TestJwtRejectsExpiredAndSessionless(t *testing.T) {
	expired, err := JwtGenerate(7, "session-1", -time.Minute)
	require.NoError(t, err)
	_, err = ParseClaims(expired)
	assert.Error(t, err)

	noSession, err := JwtGenerate(7, "", time.Hour)
	require.NoError(t, err)
	_, err = ParseClaims(noSession)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")
	assert.Equal(t, 4, passwordCost())

	hashed, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(string(hashed), "Str0ng!pass"))
	assert.Error(t, ComparePassword(string(hashed), "wrong"))

	t.Setenv("BCRYPT_COST", "99")
	assert.Equal(t, 10, passwordCost())
}
