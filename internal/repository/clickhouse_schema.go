package repository

import "fmt"

// Tables names the ClickHouse tables used by the stores.
type Tables struct {
	Reports   string
	Episodes  string
	Ephemeris string
}

// DefaultTables are used when the configuration leaves table names empty.
func DefaultTables() Tables {
	return Tables{
		Reports:   "transit_reports",
		Episodes:  "transit_episodes",
		Ephemeris: "ephemeris_longitudes",
	}
}

// SchemaStatements returns idempotent DDL for the given database and tables.
func SchemaStatements(database string, t Tables) []string {
	q := func(table string) string {
		if database == "" {
			return table
		}
		return database + "." + table
	}
	var stmts []string
	if database != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database))
	}
	return append(stmts,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            report_id    UUID,
            profile_id   String,
            month        UInt8,
            year         UInt16,
            scan_start   Date,
            scan_end     Date,
            natal        String,
            diagnostics  String,
            generated_at DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(generated_at)
        ORDER BY (profile_id, year, month, report_id)`, q(t.Reports)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            episode_id     UUID,
            report_id      UUID,
            profile_id     String,
            transiting     LowCardinality(String),
            aspect         LowCardinality(String),
            natal          LowCardinality(String),
            start_date     Date,
            end_date       Date,
            peak_date      Date,
            peak_deviation Float64,
            generated_at   DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(generated_at)
        ORDER BY (profile_id, start_date, transiting, aspect, natal, episode_id)`, q(t.Episodes)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            body      LowCardinality(String),
            ts        DateTime('UTC'),
            longitude Float64,
            speed     Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (body, ts)`, q(t.Ephemeris)),
	)
}
