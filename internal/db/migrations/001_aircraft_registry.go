package migrations

// AircraftRegistry creates the table of tracked aircraft
var AircraftRegistry = &Migration{
	Name: "001_aircraft_registry",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS aircraft (
			id BIGSERIAL PRIMARY KEY,
			icao TEXT NOT NULL UNIQUE,
			callsign TEXT,
			first_seen TIMESTAMPTZ NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL,
			message_count BIGINT NOT NULL DEFAULT 0 CHECK (message_count >= 0),
			CHECK (last_seen >= first_seen)
		);

		CREATE INDEX IF NOT EXISTS idx_aircraft_last_seen ON aircraft (last_seen DESC);
		CREATE INDEX IF NOT EXISTS idx_aircraft_callsign ON aircraft (callsign);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS aircraft;
	`,
}
