package orchestrator

import "fmt"

func statusTranslating(fileIndex, fileCount int, name string, percent int) string {
	return fmt.Sprintf("translating file %d of %d: %s (%d%%)", fileIndex+1, fileCount, name, percent)
}

func statusSwitching(provider string) string {
	return fmt.Sprintf("switching to %s...", provider)
}

func statusStopped(name string) string {
	return "stopped: " + name
}

const statusDone = "all files translated"

// Percent is round(done/total*100); an empty file counts as complete.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return (done*200 + total) / (total * 2)
}
