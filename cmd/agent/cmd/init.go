package cmd

import (
	"careline/cmd/agent/cmd/conflicts"
	"careline/cmd/agent/cmd/queue"
	"careline/cmd/agent/cmd/status"
	"careline/cmd/agent/cmd/sync"
)

func init() {
	rootCmd.AddCommand(status.StatusCmd)

	rootCmd.AddCommand(queue.QueueCmd)
	queue.QueueCmd.AddCommand(queue.ListCmd)
	queue.QueueCmd.AddCommand(queue.ClearCmd)
	queue.QueueCmd.AddCommand(queue.CheckInCmd)
	queue.QueueCmd.AddCommand(queue.CheckOutCmd)
	queue.QueueCmd.AddCommand(queue.TaskCmd)
	queue.QueueCmd.AddCommand(queue.NoteCmd)

	rootCmd.AddCommand(sync.SyncCmd)

	rootCmd.AddCommand(conflicts.ConflictCmd)
	conflicts.ConflictCmd.AddCommand(conflicts.ListCmd)
	conflicts.ConflictCmd.AddCommand(conflicts.ResolveCmd)
}
