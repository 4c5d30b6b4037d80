package check

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/config"
	"github.com/raceiq/raceiq-core-go/pkg/tabular/sqlitesource"
)

func NewCheckWorkbookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workbook [race...]",
		Short: "verifies the timing workbook against the catalog",
		Long: `Opens the timing workbook and verifies that every table the catalog
references for the given races actually exists. Without arguments all
races of the catalog are checked.`,
		Run: func(cmd *cobra.Command, args []string) {
			checkWorkbook(cmd.Context(), args)
		},
	}

	return cmd
}

func checkWorkbook(ctx context.Context, races []string) {
	logger := log.GetFromContext(ctx).Named("check")

	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		logger.Fatal("could not read catalog", log.ErrorField(err))
	}
	workbook := catalog.ResolvePath(config.DataDir, config.Workbook)
	src, err := sqlitesource.New(workbook)
	if err != nil {
		logger.Fatal("could not open workbook",
			log.String("workbook", workbook), log.ErrorField(err))
	}
	defer src.Close()

	names, err := src.TableNames(ctx)
	if err != nil {
		logger.Fatal("could not list tables", log.ErrorField(err))
	}
	logger.Info("workbook opened",
		log.String("workbook", workbook), log.Int("tables", len(names)))

	keys := races
	if len(keys) == 0 {
		keys = cat.Keys()
	}
	missing := 0
	referenced := make([]string, 0)
	for _, key := range keys {
		race, ok := cat.Race(key)
		if !ok {
			logger.Fatal("unknown race", log.String("race", key))
		}
		for _, tbl := range []string{
			race.LapEndTable, race.LapTimeTable, race.WeatherTable,
			race.ResultsTable, race.SectionAnalysisTable,
		} {
			if tbl == "" {
				continue
			}
			referenced = append(referenced, tbl)
			if !lo.Contains(names, tbl) {
				logger.Error("table missing in workbook",
					log.String("race", race.Key), log.String("table", tbl))
				missing++
			}
		}
	}

	unreferenced := lo.Without(names, referenced...)
	sort.Strings(unreferenced)
	for _, tbl := range unreferenced {
		logger.Debug("table not referenced by the catalog",
			log.String("table", tbl))
	}

	if missing > 0 {
		logger.Fatal("workbook check failed", log.Int("missing", missing))
	}
	logger.Info("workbook check passed",
		log.Int("races", len(keys)),
		log.Int("referenced", len(referenced)),
		log.Int("unreferenced", len(unreferenced)))
}
