package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChatRateLimiter_AllowsUpToLimit(t *testing.T) {
	req := require.New(t)
	rl := NewChatRateLimiter(3, time.Minute)

	req.True(rl.Allow("conn-1"))
	req.True(rl.Allow("conn-1"))
	req.True(rl.Allow("conn-1"))
	req.False(rl.Allow("conn-1"), "fourth message inside the window is blocked")
}

func TestChatRateLimiter_KeysAreIndependent(t *testing.T) {
	req := require.New(t)
	rl := NewChatRateLimiter(1, time.Minute)

	req.True(rl.Allow("conn-1"))
	req.False(rl.Allow("conn-1"))
	req.True(rl.Allow("conn-2"), "another connection has its own window")
}

func TestChatRateLimiter_WindowSlides(t *testing.T) {
	req := require.New(t)
	rl := NewChatRateLimiter(2, 20*time.Millisecond)

	req.True(rl.Allow("conn-1"))
	req.True(rl.Allow("conn-1"))
	req.False(rl.Allow("conn-1"))

	time.Sleep(30 * time.Millisecond)
	req.True(rl.Allow("conn-1"), "old attempts age out of the window")
}

func TestChatRateLimiter_ForgetResets(t *testing.T) {
	req := require.New(t)
	rl := NewChatRateLimiter(1, time.Minute)

	req.True(rl.Allow("conn-1"))
	req.False(rl.Allow("conn-1"))

	rl.Forget("conn-1")
	req.True(rl.Allow("conn-1"))
}
