package tool

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateOrderID builds a client-visible order correlation key, e.g.
// PIX-1735689600000-k3f9qa.
func GenerateOrderID() string {
	suffix := strconv.FormatInt(rand.Int63n(36*36*36*36*36*36), 36)
	for len(suffix) < 6 {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("PIX-%d-%s", time.Now().UnixMilli(), suffix)
}
