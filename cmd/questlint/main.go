// questlint validates every registered quest definition and prints a
// summary. Run it in CI to catch broken stage graphs before deployment.
package main

import (
	"fmt"
	"os"

	"github.com/gitforged/server/internal/quest"
	"github.com/gitforged/server/internal/quest/content"
)

func main() {
	registry := quest.NewRegistry()
	if err := content.Register(registry); err != nil {
		fmt.Fprintf(os.Stderr, "Registration failed: %v\n", err)
		os.Exit(1)
	}

	defs := registry.Playable()
	if debug, err := registry.Debug(); err == nil {
		defs = append(defs, debug)
	}

	failed := 0
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", def.Name, err)
			failed++
			continue
		}
		fmt.Printf("OK   %s v%s (%s, %d stages)\n",
			def.Name, def.Version, def.Difficulty, len(def.Stages))
	}

	if first, err := registry.First(); err != nil {
		fmt.Fprintln(os.Stderr, "FAIL no entry quest registered")
		failed++
	} else {
		fmt.Printf("Entry quest: %s\n", first.Name)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d quest(s) failed validation\n", failed)
		os.Exit(1)
	}
	fmt.Printf("%d quest(s) validated\n", len(defs))
}
