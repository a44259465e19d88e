//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// Ad-hoc analysis of a finished run: per-device offload counts, failure
// rates and latency spread straight from the metrics database.
//
//	go run deploy/dogfood/analyze_runs.go [edgeswarm.db]
func main() {
	dbPath := "edgeswarm.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT run_id, scenario_name, COUNT(*),
		       SUM(CASE WHEN status = 'FAILURE' THEN 1 ELSE 0 END),
		       AVG(latency_ms), MAX(latency_ms)
		FROM execution_metrics
		GROUP BY run_id, scenario_name
		ORDER BY MIN(timestamp)
	`)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	fmt.Println("=== Runs ===")
	for rows.Next() {
		var (
			runID, scenarioName string
			total, failed       int
			avgMS, maxMS        float64
		)
		if err := rows.Scan(&runID, &scenarioName, &total, &failed, &avgMS, &maxMS); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s  %-20s  offloads=%-6d failed=%-5d avg=%.0fms max=%.0fms\n",
			runID, scenarioName, total, failed, avgMS, maxMS)
	}
	if err := rows.Err(); err != nil {
		log.Fatal(err)
	}

	devices, err := db.Query(`
		SELECT device_id, COUNT(*),
		       SUM(CASE WHEN status = 'FAILURE' THEN 1 ELSE 0 END),
		       AVG(latency_ms)
		FROM execution_metrics
		GROUP BY device_id
		ORDER BY device_id
	`)
	if err != nil {
		log.Fatal(err)
	}
	defer devices.Close()

	fmt.Println("\n=== Devices ===")
	for devices.Next() {
		var (
			deviceID      string
			total, failed int
			avgMS         float64
		)
		if err := devices.Scan(&deviceID, &total, &failed, &avgMS); err != nil {
			log.Fatal(err)
		}
		marker := ""
		if total > 0 && float64(failed)/float64(total) > 0.05 {
			marker = "  <-- failure rate above 5%"
		}
		fmt.Printf("%-25s offloads=%-6d failed=%-5d avg=%.0fms%s\n",
			deviceID, total, failed, avgMS, marker)
	}
	if err := devices.Err(); err != nil {
		log.Fatal(err)
	}
}
