package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shipcerts/internal/certificate"
	"shipcerts/internal/logger"
	"shipcerts/internal/sheets"
	"shipcerts/internal/store"
	"shipcerts/pkg/models"
)

var importCmd = &cobra.Command{
	Use:   "import [ships.json | --sheet URL --ship ID]",
	Short: "Import ships and their certificates into the store",
	Long: `Import a JSON document of ships and certificates into the configured store.

The file holds a list of ships, each with an optional list of certificate
records. Ships and certificates without an id get a new UUID. Records are
normalized the same way extracted records are before they are stored.

  [
    {
      "name": "NORDIC STAR", "imo_number": "9123456", "built_year": 2015,
      "certificates": [
        {"cert_name": "Safety Management Certificate", "cert_no": "SMC-1",
         "cert_type": "Full Term", "issue_date": "1 January 2024", "valid_date": "1 January 2029"}
      ]
    }
  ]

With --sheet, accepted rows of a certificate register written by
'shipcerts batch --sheet' are imported for the existing ship given by --ship.`,
	Example: `  shipcerts import fleet.json
  STORE_DRIVER=postgres DATABASE_URL=postgres://... shipcerts import fleet.json
  shipcerts import --sheet "https://docs.google.com/spreadsheets/d/1AbC.../edit" --sheet-name "NORDIC STAR" --ship 6f1c2a9e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

// ImportShip is one ship entry of an import file.
type ImportShip struct {
	models.Ship
	Certificates []models.CertificateRecord `json:"certificates"`
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("sheet", "", "Google Sheets URL of a certificate register to import")
	importCmd.Flags().String("sheet-name", "Certificates", "Sheet (tab) name inside the spreadsheet")
	importCmd.Flags().String("ship", "", "Ship id the register rows belong to (with --sheet)")
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")

	sheetURL, _ := cmd.Flags().GetString("sheet")
	if sheetURL != "" {
		sheetName, _ := cmd.Flags().GetString("sheet-name")
		shipID, _ := cmd.Flags().GetString("ship")
		if shipID == "" {
			return errors.New("--ship is required with --sheet")
		}
		return importRegister(sheetURL, sheetName, shipID, log)
	}
	if len(args) != 1 {
		return errors.New("an import file or --sheet is required")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	var ships []ImportShip
	if err := json.Unmarshal(data, &ships); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}
	if len(ships) == 0 {
		return errors.New("import file contains no ships")
	}

	ctx, cancel := createContextWithTimeout(5*time.Minute, log)
	defer cancel()

	s, err := openStore(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer s.Close()

	totalCerts := 0
	for _, entry := range ships {
		ship := entry.Ship
		if imo, ok := certificate.NormalizeIMO(ship.IMONumber); ok {
			ship.IMONumber = imo
		}
		if err := s.SaveShip(ctx, &ship); err != nil {
			return err
		}

		for _, rec := range entry.Certificates {
			if err := saveRecord(ctx, s, &ship, rec, log); err != nil {
				return err
			}
			totalCerts++
		}

		fmt.Printf("%s  %s (%d certificates)\n", ship.ID, ship.Name, len(entry.Certificates))
	}

	log.Info().
		Int("ships", len(ships)).
		Int("certificates", totalCerts).
		Str("store", appConfig.Store.Driver).
		Msg("Import completed")
	return nil
}

// importRegister stores the accepted rows of a register sheet for one ship.
func importRegister(sheetURL, sheetName, shipID string, log zerolog.Logger) error {
	ctx, cancel := createContextWithTimeout(5*time.Minute, log)
	defer cancel()

	register, err := sheets.NewSheetsService(ctx, sheetURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Google Sheets: %w", err)
	}
	records, err := register.ReadRegister(ctx, sheetName)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer s.Close()

	ship, err := s.GetShip(ctx, shipID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("ship %s not found; import it from a JSON file first", shipID)
	}
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := saveRecord(ctx, s, &ship, rec, log); err != nil {
			return err
		}
	}

	fmt.Printf("%s  %s (%d certificates from sheet %q)\n", ship.ID, ship.Name, len(records), sheetName)
	log.Info().
		Str("ship", ship.ID).
		Int("certificates", len(records)).
		Str("sheet", sheetName).
		Msg("Register import completed")
	return nil
}

// saveRecord normalizes rec and stores it for ship.
func saveRecord(ctx context.Context, s store.Store, ship *models.Ship, rec models.CertificateRecord, log zerolog.Logger) error {
	for _, d := range certificate.NormalizeRecord(&rec, models.DocumentCertificate) {
		log.Warn().Str("ship", ship.Name).Str("cert_no", rec.CertNo).Msg(d.Error())
	}
	cert := models.StoredCertificate{ShipID: ship.ID, CompanyID: ship.CompanyID, CertificateRecord: rec}
	return s.SaveCertificate(ctx, &cert)
}
