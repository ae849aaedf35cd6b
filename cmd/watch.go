package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/linomassaro/SyncStream/pkg/client"
	"github.com/linomassaro/SyncStream/pkg/protocol"
	"github.com/spf13/cobra"
)

var (
	watchURL     string
	watchSession string
	watchViewer  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Join a session as a viewer and print sync events",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8090/ws", "sync endpoint URL")
	watchCmd.Flags().StringVar(&watchSession, "session", "", "session id to join")
	watchCmd.Flags().StringVar(&watchViewer, "viewer", "", "viewer id (generated if empty)")
	_ = watchCmd.MarkFlagRequired("session")
}

func runWatch(cmd *cobra.Command, args []string) error {
	viewerID := watchViewer
	if viewerID == "" {
		viewerID = uuid.NewString()
	}

	c := client.New(client.Options{
		URL:       watchURL,
		SessionID: watchSession,
		ViewerID:  viewerID,
		OnStatus: func(st client.Status) {
			fmt.Fprintf(os.Stderr, "[%s]\n", st)
		},
		OnMessage: func(env protocol.Envelope) {
			switch env.Type {
			case protocol.TypeSync:
				if env.Data != nil && env.Data.CurrentTime != nil {
					fmt.Printf("sync: t=%.1fs playing=%v\n", *env.Data.CurrentTime, env.Data.IsPlaying != nil && *env.Data.IsPlaying)
				}
			case protocol.TypeViewerJoin:
				if env.Data != nil {
					fmt.Printf("viewer joined: %s\n", env.Data.ViewerID)
				}
			case protocol.TypeViewerLeave:
				if env.Data != nil {
					fmt.Printf("viewer left: %s\n", env.Data.ViewerID)
				}
			default:
				fmt.Printf("%s\n", env.Type)
			}
		},
	})
	c.Connect()
	defer c.Disconnect()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
