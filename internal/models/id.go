// internal/models/id.go
package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID builds an id of the form {prefix}_{epochMillis}_{9charBase36}.
func newID(prefix string) string {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		b.WriteByte(idAlphabet[rand.Intn(len(idAlphabet))])
	}
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), b.String())
}

// NewApplicationID generates an application/draft id.
func NewApplicationID() string { return newID("app") }

// NewLeadID generates a lead id.
func NewLeadID() string { return newID("lead") }
