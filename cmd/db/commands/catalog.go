package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"github.com/wheresmywater/backend/internal/database/types"
	"go.uber.org/zap"
)

// CatalogCommands returns commands that manage buildings and fountains.
func CatalogCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "building",
			Usage: "Manage buildings",
			Commands: []*cli.Command{
				{
					Name:      "create",
					Usage:     "Add a building to the map",
					ArgsUsage: "NAME",
					Flags: []cli.Flag{
						&cli.FloatFlag{Name: "lat", Usage: "Pin latitude"},
						&cli.FloatFlag{Name: "lng", Usage: "Pin longitude"},
					},
					Action: handleBuildingCreate(deps),
				},
				{
					Name:   "list",
					Usage:  "List buildings",
					Action: handleBuildingList(deps),
				},
			},
		},
		{
			Name:  "fountain",
			Usage: "Manage fountains",
			Commands: []*cli.Command{
				{
					Name:  "create",
					Usage: "Add a fountain to a building",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "building", Usage: "Building id"},
						&cli.StringFlag{Name: "description", Usage: "Where in the building the fountain is"},
						&cli.FloatFlag{Name: "lat", Usage: "Latitude"},
						&cli.FloatFlag{Name: "lng", Usage: "Longitude"},
					},
					Action: handleFountainCreate(deps),
				},
				{
					Name:   "list",
					Usage:  "List fountains with their current filter",
					Action: handleFountainList(deps),
				},
			},
		},
	}
}

func handleBuildingCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		building := &types.Building{
			Name: c.Args().First(),
			PinCoords: types.Coordinates{
				Latitude:  c.Float("lat"),
				Longitude: c.Float("lng"),
			},
		}
		if err := deps.DB.Model().Building().CreateBuilding(ctx, building); err != nil {
			return err
		}

		fmt.Println(building.ID)
		return nil
	}
}

func handleBuildingList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		buildings, err := deps.DB.Model().Building().GetBuildings(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tFOUNTAINS")
		for _, b := range buildings {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", b.ID, b.Name, len(b.FountainIDs))
		}
		return tw.Flush()
	}
}

func handleFountainCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		raw := c.String("building")
		if raw == "" {
			return ErrBuildingRequired
		}

		buildingID, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid building id %q: %w", raw, err)
		}

		building, err := deps.DB.Model().Building().GetBuildingByID(ctx, buildingID)
		if err != nil {
			return err
		}

		fountain := &types.Fountain{
			Location: types.FountainLocation{
				Building:    building.Name,
				Description: c.String("description"),
			},
		}
		if c.IsSet("lat") || c.IsSet("lng") {
			fountain.Location.Coordinates = &types.Coordinates{
				Latitude:  c.Float("lat"),
				Longitude: c.Float("lng"),
			}
		}

		if err := deps.DB.Model().Fountain().CreateFountain(ctx, fountain); err != nil {
			return err
		}

		if err := deps.DB.Model().Building().LinkFountain(ctx, building.ID, fountain.ID); err != nil {
			return fmt.Errorf("fountain %s created but not linked: %w", fountain.ID, err)
		}

		deps.Logger.Info("Created fountain",
			zap.String("fountainID", fountain.ID.String()),
			zap.String("building", building.Name))
		fmt.Println(fountain.ID)
		return nil
	}
}

func handleFountainList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		fountains, err := deps.DB.Model().Fountain().GetFountains(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tBUILDING\tDESCRIPTION\tFILTER\tLAST UPDATE")
		for _, f := range fountains {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				f.ID, f.Location.Building, f.Location.Description, f.Filter,
				f.LastUpdate.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	}
}
