package main

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/favalepink/traincrm/internal/importer"
	"github.com/favalepink/traincrm/internal/lead"
	"github.com/favalepink/traincrm/internal/sheet"
)

var (
	importFilePath    string
	importMappingPath string
	importSheetName   string
	importEncoding    string
	importDelimiter   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		mapping := sheet.Mapping{}
		if importMappingPath != "" {
			m, err := sheet.LoadMapping(importMappingPath)
			if err != nil {
				return err
			}
			mapping = m
		}

		records, err := readRecords(importFilePath, mapping)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return eris.Errorf("no lead rows found in %s", importFilePath)
		}

		e, err := initStores(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		imp := importer.New(e.Store, e.Recorder, importer.Options{
			BatchSize:             cfg.Import.BatchSize,
			MaxParallelPartitions: cfg.Import.MaxParallelPartitions,
			DefaultCampaign:       cfg.Import.DefaultCampaign,
		})

		actorID := "cli:" + uuid.New().String()
		result, err := imp.Run(ctx, actorID, records)
		if err != nil {
			return eris.Wrap(err, "import file")
		}

		zap.L().Info("import complete",
			zap.String("file", importFilePath),
			zap.Int("inserted", len(result.Success)),
			zap.Int("updated", len(result.Updated)),
			zap.Int("errors", len(result.Errors)),
		)
		for _, re := range result.Errors {
			zap.L().Warn("rejected record", zap.String("reason", re.Error))
		}
		return nil
	},
}

// readRecords parses the file by extension.
func readRecords(path string, mapping sheet.Mapping) ([]lead.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		var delim rune
		if importDelimiter != "" {
			delim = []rune(importDelimiter)[0]
		}
		header, rows, err := sheet.ReadCSV(path, sheet.CSVOptions{
			Delimiter: delim,
			Encoding:  importEncoding,
		})
		if err != nil {
			return nil, err
		}
		return sheet.Records(header, rows, mapping), nil

	case ".xlsx":
		header, rows, err := sheet.ReadXLSX(path, sheet.XLSXOptions{SheetName: importSheetName})
		if err != nil {
			return nil, err
		}
		return sheet.Records(header, rows, mapping), nil

	default:
		return nil, eris.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to CSV or XLSX file (required)")
	importCmd.Flags().StringVar(&importMappingPath, "mapping", "", "path to YAML header-mapping file")
	importCmd.Flags().StringVar(&importSheetName, "sheet", "", "XLSX sheet name (default: first sheet)")
	importCmd.Flags().StringVar(&importEncoding, "encoding", "", "CSV source charset, e.g. iso-8859-1 (default: UTF-8)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "CSV field delimiter (default: comma)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
