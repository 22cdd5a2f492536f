package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"github.com/wheresmywater/backend/internal/rest/middleware/auth"
)

// TokenCommands returns commands for minting access tokens during development.
func TokenCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "token",
			Usage:     "Issue an access token for a user",
			ArgsUsage: "USER_ID",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Usage: "Display name carried in the token"},
				&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "Token lifetime"},
			},
			Action: func(_ context.Context, c *cli.Command) error {
				if c.Args().Len() != 1 {
					return ErrUserIDRequired
				}

				userID, err := uuid.Parse(c.Args().First())
				if err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}

				token, err := auth.Issue(&deps.Config.API.Auth, auth.Identity{
					UserID: userID,
					User:   c.String("user"),
				}, c.Duration("ttl"))
				if err != nil {
					return err
				}

				fmt.Println(token)
				return nil
			},
		},
	}
}
