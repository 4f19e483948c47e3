// Command inspect dumps stored chat messages or notifications as a
// table, for poking at a task-hub Badger directory offline.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or notif:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Timestamp", "Owner", "Scope", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				row, err := toRow(key, v)
				if err != nil {
					// Log and keep going instead of aborting the whole scan
					fmt.Printf("Error decoding key %s: %v\n", key, err)
					return nil
				}
				table.Append(row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}

	table.Render()
}

type storedRecord struct {
	ID      string  `json:"id"`
	UserID  string  `json:"userId"`
	Author  string  `json:"author"`
	Content string  `json:"content"`
	Room    string  `json:"room"`
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Read    *bool   `json:"read"`
	At      int64   `json:"at"`
	Related *string `json:"relatedTaskId"`
}

func toRow(key string, value []byte) ([]string, error) {
	var record storedRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, err
	}
	timestamp := time.Unix(0, record.At).UTC().Format("2006-01-02 15:04:05")

	if strings.HasPrefix(key, "notif:") {
		detail := record.Message
		if record.Read != nil && *record.Read {
			detail += " [read]"
		}
		return []string{shorten(key), "NOTIF", timestamp, record.UserID, record.Type, detail}, nil
	}
	return []string{shorten(key), "CHAT", timestamp, record.Author, record.Room, record.Content}, nil
}

func shorten(key string) string {
	if len(key) > 48 {
		return key[:48] + "…"
	}
	return key
}
