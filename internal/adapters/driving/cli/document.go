package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var textCmd = &cobra.Command{
	Use:   "text [document-id]",
	Short: "Print a document's extracted text",
	Args:  cobra.ExactArgs(1),
	RunE:  runText,
}

var (
	listApp  string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents for an application",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().StringVarP(&listApp, "app", "a", "", "application reference (required)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	_ = listCmd.MarkFlagRequired("app")

	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runText(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	text, err := svc.Document.GetText(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document text: %w", err)
	}

	cmd.Println(text)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	docs, err := svc.Document.ListDocuments(cmd.Context(), listApp)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if listJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for application: %s\n", listApp)
		return nil
	}

	cmd.Printf("Documents for application %s:\n\n", listApp)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:    %s\n", docs[i].SourceFilename)
		cmd.Printf("    Type:    %s\n", docs[i].DocumentType)
		cmd.Printf("    Chunks:  %d (%s)\n", docs[i].ChunkCount, docs[i].ExtractionMethod)
		if docs[i].ContainsDrawings {
			cmd.Println("    Contains drawings")
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	doc, err := svc.Document.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  File:        %s\n", doc.SourceFilename)
	cmd.Printf("  Path:        %s\n", doc.SourcePath)
	cmd.Printf("  Application: %s\n", doc.ApplicationRef)
	cmd.Printf("  Type:        %s\n", doc.DocumentType)
	cmd.Printf("  Chunks:      %d\n", doc.ChunkCount)
	cmd.Printf("  Extraction:  %s\n", doc.ExtractionMethod)
	cmd.Printf("  Image ratio: %.2f (drawings: %t)\n", doc.ImageRatio, doc.ContainsDrawings)
	cmd.Printf("  SHA-256:     %s\n", doc.FileHash)
	cmd.Printf("  Ingested:    %s\n", doc.IngestedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	if err := svc.Document.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document: %s\n", args[0])
	return nil
}
