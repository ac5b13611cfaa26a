package main

import (
	"fmt"
	"strconv"
	"time"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/queries"
	"mindmap-backend/application/services"
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/infrastructure/di"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (a *app) listCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's maps",
		Long:  "List the owner's stored maps, most recently updated first, with the plan status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireOwner(); err != nil {
				return err
			}
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				res, err := c.QueryBus.Ask(cmd.Context(), queries.ListMapsQuery{OwnerID: a.owner, PageSize: 100})
				if err != nil {
					return err
				}
				list := res.(queries.ListMapsResult)

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), list.Maps)
				}

				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.Header("Map ID", "Title", "Nodes", "Edges", "Version", "Updated")
				for _, m := range list.Maps {
					table.Append(
						m.MapID.String(),
						m.Title,
						strconv.Itoa(m.NodeCount),
						strconv.Itoa(m.EdgeCount),
						strconv.Itoa(m.Version),
						m.UpdatedAt.Local().Format(time.DateTime),
					)
				}
				return table.Render()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <map-id>",
		Short: "Export a stored map as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireOwner(); err != nil {
				return err
			}
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				res, err := c.QueryBus.Ask(cmd.Context(), queries.ExportMapQuery{
					OwnerID: a.owner,
					MapID:   valueobjects.MapID(args[0]),
				})
				if err != nil {
					return err
				}
				data, err := res.(aggregates.ExportDocument).Encode()
				if err != nil {
					return err
				}
				return writeOutput(cmd, output, append(data, '\n'))
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	var mapID string

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an exported document into a stored map",
		Long: `Replace the graph of a stored map with the nodes and edges of an
exported document. The map id defaults to the document's own id; a map that
does not exist yet is created by the import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireOwner(); err != nil {
				return err
			}
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := aggregates.DecodeExportDocument(raw)
			if err != nil {
				return err
			}
			target := valueobjects.MapID(mapID)
			if target == "" {
				target = doc.MapID
			}

			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				ref := commands.MapRef{OwnerID: a.owner, MapID: target}
				if _, err := c.CommandBus.Send(cmd.Context(), commands.ImportMapCommand{MapRef: ref, Document: doc}); err != nil {
					return err
				}
				res, err := c.CommandBus.Send(cmd.Context(), commands.SaveMapCommand{MapRef: ref})
				if err != nil {
					return err
				}
				state := res.(services.SessionState)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d nodes and %d edges into %s (version %d)\n",
					len(state.Nodes), len(state.Edges), state.MapID, state.Version)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mapID, "map", "", "target map id (defaults to the document's mapId)")
	return cmd
}
