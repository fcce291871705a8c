package command

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon_queue/internal/config"
)

func TestTokenCommand(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{Auth: config.Auth{AccessSecret: "s3cret"}}

	c := TokenCommand{Logger: logger}.Command(context.Background(), cfg)
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"--user", "staff-7", "--ttl", "1h"})
	require.NoError(t, c.Execute())

	token, err := jwt.Parse(strings.TrimSpace(out.String()), func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "staff-7", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	c := TokenCommand{Logger: logrus.New()}.Command(context.Background(), &config.Config{})
	c.SetOut(io.Discard)
	c.SetErr(io.Discard)
	c.SetArgs([]string{"--user", "staff-7"})
	assert.Error(t, c.Execute())
}

func TestResetCommandNeedsConfirmation(t *testing.T) {
	c := ResetCommand{Logger: logrus.New()}.Command(context.Background(), &config.Config{StoreDriver: config.DriverMemory})
	c.SetOut(io.Discard)
	c.SetErr(io.Discard)
	c.SetArgs([]string{})
	err := c.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}
