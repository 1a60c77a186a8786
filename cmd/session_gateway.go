/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/trading-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// sessionGatewayCmd represents the session gateway command
var sessionGatewayCmd = &cobra.Command{
	Use:   "session-gateway",
	Short: "Push order status events to connected clients",
	Long:  `The session gateway holds client websocket sessions and fans order status events out to every session of the affected user.`,
	Run:   bootstrap.StartSessionGateway,
}

func init() {
	rootCmd.AddCommand(sessionGatewayCmd)
}
