package testutil

import "github.com/zjrosen/classwind/internal/ranking"

// TailwindRanking is a small ranking context covering the classes used
// across tests.
func TailwindRanking() *ranking.Context {
	return ranking.NewContext(
		[]string{"container", "flex", "grid", "items-*", "p-*", "m-*", "text-*", "bg-*", "border", "rounded"},
		[]string{"sm", "md", "lg", "hover", "focus"},
		"",
	)
}
