package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// LineKey derives the deterministic identity of a customization. Two lines
// with the same base item, container, and topping set collapse onto the same
// key regardless of the order toppings were picked in.
func LineKey(baseItemID uuid.UUID, containerID *uuid.UUID, toppingIDs []uuid.UUID) string {
	parts := make([]string, 0, 2+len(toppingIDs))
	parts = append(parts, baseItemID.String())

	container := ""
	if containerID != nil {
		container = containerID.String()
	}
	parts = append(parts, container)

	toppings := make([]string, 0, len(toppingIDs))
	for _, id := range toppingIDs {
		toppings = append(toppings, id.String())
	}
	sort.Strings(toppings)
	parts = append(parts, toppings...)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
