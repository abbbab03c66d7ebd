package chat

import (
	"strings"
)

const primerIntro = "You are a helpful assistant that answers questions based on the following book:"

// BuildPrimer creates the system message that carries the whole book
func BuildPrimer(content string) string {
	var parts []string

	parts = append(parts, primerIntro)
	parts = append(parts, "")
	parts = append(parts, content)

	return strings.Join(parts, "\n")
}
