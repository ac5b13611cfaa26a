package main

import (
	"fmt"
	"time"

	"mindmap-backend/application/queries"
	"mindmap-backend/domain/classifier"
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/infrastructure/di"

	"github.com/spf13/cobra"
)

func (a *app) expandCommand() *cobra.Command {
	var (
		nodeID string
		output string
	)

	cmd := &cobra.Command{
		Use:   "expand <file|->",
		Short: "Expand a node of an exported document",
		Long: `Ask the suggestion service for concepts related to a node and add them
as its children. The document is expanded locally and never stored. Without
OPENROUTER_API_KEY the children are placeholder concepts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := aggregates.DecodeExportDocument(raw)
			if err != nil {
				return err
			}
			mapID := doc.MapID
			if mapID == "" {
				mapID = valueobjects.NewMapID()
			}

			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				// an empty owner keeps the session local-only
				s, err := c.Workspace.Open(cmd.Context(), "", mapID)
				if err != nil {
					return err
				}
				if err := s.Import(doc.GraphData); err != nil {
					return err
				}
				res, err := c.Workspace.Expand(cmd.Context(), "", mapID, valueobjects.NodeID(nodeID))
				if err != nil {
					return err
				}
				if res.UsedFallback {
					fmt.Fprintln(cmd.ErrOrStderr(), "Suggestions unavailable, added placeholder concepts")
				}

				data, err := s.Export(time.Now()).Encode()
				if err != nil {
					return err
				}
				return writeOutput(cmd, output, append(data, '\n'))
			})
		},
	}

	cmd.Flags().StringVar(&nodeID, "node", "1", "id of the node to expand")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (a *app) classifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <label>",
		Short: "Print the concept category of a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				res, err := c.QueryBus.Ask(cmd.Context(), queries.ClassifyQuery{Label: args[0]})
				if err != nil {
					return err
				}
				r := res.(classifier.Classification)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\n", r.Category, r.Confidence)
				return nil
			})
		},
	}
}
