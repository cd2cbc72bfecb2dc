package migrations

// AircraftSummaries stores the periodic registry aggregates
var AircraftSummaries = &Migration{
	Name: "002_aircraft_summaries",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS aircraft_summaries (
			time TIMESTAMPTZ NOT NULL,
			run_id UUID NOT NULL,
			total_aircraft INTEGER NOT NULL,
			active_aircraft INTEGER NOT NULL,
			with_callsign INTEGER NOT NULL,
			total_messages BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_aircraft_summaries_time ON aircraft_summaries (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS aircraft_summaries;
	`,
}
