/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/trading-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// executionWorkerCmd represents the execution worker command
var executionWorkerCmd = &cobra.Command{
	Use:   "execution-worker",
	Short: "Consume order commands and execute them on the exchange",
	Long:  `The execution worker consumes order commands from the broker, signs and submits them to the exchange, persists the outcome, and publishes order status events.`,
	Run:   bootstrap.StartExecutionWorker,
}

func init() {
	rootCmd.AddCommand(executionWorkerCmd)
}
