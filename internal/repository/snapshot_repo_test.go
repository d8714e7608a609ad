package repository

import (
	"os"
	"testing"

	"github.com/sosengine/databridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDSNEnv points these tests at a disposable Postgres database. They are
// skipped when it is unset so the suite stays runnable without infrastructure.
const testDSNEnv = "BRIDGE_TEST_PG_DSN"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.InstrumentModel{},
		&models.OptionAggregateModel{},
		&models.OptionStrikeModel{},
		&models.BreadthModel{},
	))

	t.Cleanup(func() {
		db.Exec("TRUNCATE TABLE " + models.InstrumentsTableName)
		db.Exec("TRUNCATE TABLE " + models.OptionAggregatesTableName)
		db.Exec("TRUNCATE TABLE " + models.OptionStrikesTableName)
		db.Exec("TRUNCATE TABLE " + models.BreadthTableName)
	})
	return db
}

func testAggregate(symbol string, ts int64, callOI, putOI int64) models.OptionAggregateModel {
	return models.OptionAggregateModel{
		Symbol:      symbol,
		Timestamp:   ts,
		Expiry:      "2026-08-27",
		TotalCallOI: callOI,
		TotalPutOI:  putOI,
		PCR:         models.ComputePCR(callOI, putOI),
	}
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	repo := NewSnapshotRepository(openTestDB(t))

	first := []models.OptionStrikeModel{
		{Symbol: "NIFTY", Timestamp: 1000, Strike: 24500, CallOI: 60, PutOI: 30},
		{Symbol: "NIFTY", Timestamp: 1000, Strike: 24600, CallOI: 40, PutOI: 20},
	}
	require.NoError(t, repo.SaveSnapshot(testAggregate("NIFTY", 1000, 100, 50), first))

	chain, err := repo.GetLatestChain("NIFTY")
	require.NoError(t, err)
	assert.Len(t, chain, 2)

	// A later snapshot supersedes the earlier one completely
	second := []models.OptionStrikeModel{
		{Symbol: "NIFTY", Timestamp: 1001, Strike: 24500, CallOI: 70, PutOI: 35},
	}
	require.NoError(t, repo.SaveSnapshot(testAggregate("NIFTY", 1001, 120, 60), second))

	chain, err = repo.GetLatestChain("NIFTY")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, int64(1001), chain[0].Timestamp)
	assert.Equal(t, int64(70), chain[0].CallOI)
}

func TestSaveSnapshotRejectsNoOpenInterest(t *testing.T) {
	repo := NewSnapshotRepository(openTestDB(t))

	err := repo.SaveSnapshot(testAggregate("NIFTY", 1000, 0, 0), nil)
	require.Error(t, err)

	chain, err := repo.GetLatestChain("NIFTY")
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestGetLatestChainEmptyWithoutData(t *testing.T) {
	repo := NewSnapshotRepository(openTestDB(t))

	chain, err := repo.GetLatestChain("BANKNIFTY")
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestGetLatestAggregate(t *testing.T) {
	repo := NewSnapshotRepository(openTestDB(t))

	aggregate, err := repo.GetLatestAggregate("NIFTY")
	require.NoError(t, err)
	assert.Nil(t, aggregate)

	require.NoError(t, repo.SaveSnapshot(testAggregate("NIFTY", 1000, 100, 50), nil))
	require.NoError(t, repo.SaveSnapshot(testAggregate("NIFTY", 1001, 100, 125), nil))

	aggregate, err = repo.GetLatestAggregate("NIFTY")
	require.NoError(t, err)
	require.NotNil(t, aggregate)
	assert.Equal(t, int64(1001), aggregate.Timestamp)
	assert.Equal(t, 1.25, aggregate.PCR)
}

func TestReplaceInstrumentsRollsBackOnFailure(t *testing.T) {
	repo := NewInstrumentRepository(openTestDB(t))

	seed := []models.InstrumentModel{
		{InstrumentKey: "NSE_EQ|SEED", Tradingsymbol: "SEED", Segment: models.SegmentEquity},
	}
	inserted, err := repo.ReplaceInstruments(seed, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	// Duplicate primary keys across batches force the second insert to fail;
	// the truncate and first batch must roll back with it.
	dup := []models.InstrumentModel{
		{InstrumentKey: "NSE_EQ|DUP", Tradingsymbol: "DUP", Segment: models.SegmentEquity},
		{InstrumentKey: "NSE_EQ|DUP", Tradingsymbol: "DUP", Segment: models.SegmentEquity},
	}
	_, err = repo.ReplaceInstruments(dup, 1)
	require.Error(t, err)

	instruments, err := repo.GetAllInstruments()
	require.NoError(t, err)
	require.Len(t, instruments, 1)
	assert.Equal(t, "SEED", instruments[0].Tradingsymbol)
}
