/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/trading-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// apiGatewayCmd represents the api gateway command
var apiGatewayCmd = &cobra.Command{
	Use:   "api-gateway",
	Short: "Serve the order submission and read API",
	Long:  `The api gateway accepts order submissions, records them durably, publishes order commands to the broker, and serves order and position read queries.`,
	Run:   bootstrap.StartAPIGateway,
}

func init() {
	rootCmd.AddCommand(apiGatewayCmd)
}
