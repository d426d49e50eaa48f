// Command simultaneous adds artists from several writers, each with its own
// persistence context, while snapshots are taken, then checks that every
// identity is distinct and every snapshot is consistent.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/infra/datastore"
	sqlitedriver "github.com/screensound/catalog/internal/infra/datastore/sqlite"
	"github.com/screensound/catalog/internal/util/clock"
)

const (
	dbPath        = "./tmp/sim_catalog.sqlite"
	backupPath    = "./tmp/sim_catalog-backup.sqlite"
	writers       = 4  // concurrent writers
	addsPerWriter = 50 // artists per context before it is reopened
	testDuration  = 10 * time.Second
)

type backupResult struct {
	at          time.Time
	duration    time.Duration
	mainCount   int64
	backupCount int64
	integrity   string
	err         error
}

// idLog collects every identity handed out so duplicates can be reported.
type idLog struct {
	mu   sync.Mutex
	seen map[int64]int
	dups []int64
}

func (l *idLog) record(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[id]++
	if l.seen[id] == 2 {
		l.dups = append(l.dups, id)
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func writer(ctx context.Context, id int, ds datastore.DataStore, ids *idLog, wg *sync.WaitGroup) {
	defer wg.Done()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pc, err := ds.NewContext(ctx)
		if err != nil {
			log.Printf("[writer %d] context err: %v", id, err)
			time.Sleep(20 * time.Millisecond)
			continue
		}
		repo := datastore.NewRepository[*model.Artist](pc)
		for i := 0; i < addsPerWriter && ctx.Err() == nil; i++ {
			seq++
			a, err := model.NewArtist(fmt.Sprintf("w%d-%d", id, seq), "")
			must(err)
			if err := repo.Add(ctx, a); err != nil {
				if sqlitedriver.IsBusyErr(err) {
					// not written; try the same artist again
					seq--
					i--
					time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
					continue
				}
				if ctx.Err() == nil {
					log.Printf("[writer %d] add err: %v", id, err)
				}
				continue
			}
			ids.record(a.ID())
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		}
		_ = pc.Close()

		time.Sleep(time.Duration(rand.Intn(15)) * time.Millisecond)
	}
}

func backupOnce(ctx context.Context, dbPath, path string) error {
	// VACUUM INTO fails when the target exists: write to .tmp, then replace
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := sqlitedriver.SnapshotTo(ctx, dbPath, tmp); err != nil {
			lastErr = err
			if sqlitedriver.IsBusyErr(err) {
				time.Sleep(time.Duration(50*(i+1)) * time.Millisecond)
				continue
			}
			return err
		}
		_ = os.Remove(path)
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return err
		}
		return nil
	}
	return lastErr
}

func countArtists(path string) (int64, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var n int64
	err = db.QueryRow(`SELECT COUNT(*) FROM artists`).Scan(&n)
	return n, err
}

func integrityCheck(path string) (string, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var res string
	if err := db.QueryRow(`PRAGMA integrity_check;`).Scan(&res); err != nil {
		return "", err
	}
	return res, nil
}

func takeBackup(ctx context.Context) backupResult {
	start := clock.Now()
	r := backupResult{at: start}
	if err := backupOnce(ctx, dbPath, backupPath); err != nil {
		r.err = err
		return r
	}
	r.mainCount, _ = countArtists(dbPath)
	if n, err := countArtists(backupPath); err != nil {
		r.err = fmt.Errorf("count backup: %w", err)
	} else {
		r.backupCount = n
	}
	r.integrity, _ = integrityCheck(backupPath)
	r.duration = clock.Now().Sub(start)
	return r
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = os.Remove(dbPath)

	ds, err := datastore.Open(context.Background(), datastore.Config{Path: dbPath})
	must(err)
	// same pool as the server
	ds.SetConnPool(10, 10)
	defer ds.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	writeCtx, stopWriters := context.WithCancel(ctx)

	ids := &idLog{seen: map[int64]int{}}
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go writer(writeCtx, i+1, ds, ids, &wg)
	}

	var results []backupResult
	done := time.After(testDuration)
loop:
	for {
		select {
		case <-done:
			break loop
		case <-ctx.Done():
			break loop
		case <-time.After(2 * time.Second):
			r := takeBackup(ctx)
			if r.err != nil {
				log.Printf("[backup] ERR: %v", r.err)
			} else {
				log.Printf("[backup] OK in %v  main=%d  backup=%d  integrity=%s",
					r.duration, r.mainCount, r.backupCount, r.integrity)
			}
			results = append(results, r)
		}
	}

	stopWriters()
	wg.Wait()

	log.Println("[backup] final...")
	final := takeBackup(context.Background())
	must(final.err)
	log.Printf("[final] main=%d backup=%d integrity=%s ids=%d", final.mainCount, final.backupCount, final.integrity, len(ids.seen))

	// snapshots are consistent, never shrink and never run ahead of the main file
	var violations []string
	var prev int64 = -1
	for i, r := range results {
		if r.err != nil {
			violations = append(violations, fmt.Sprintf("%d: backup error: %v", i, r.err))
			continue
		}
		if r.integrity != "ok" {
			violations = append(violations, fmt.Sprintf("%d: integrity=%s", i, r.integrity))
		}
		if prev >= 0 && r.backupCount < prev {
			violations = append(violations, fmt.Sprintf("%d: backupCount %d < prev %d", i, r.backupCount, prev))
		}
		if r.backupCount > r.mainCount {
			violations = append(violations, fmt.Sprintf("%d: backupCount %d > mainCount %d", i, r.backupCount, r.mainCount))
		}
		prev = r.backupCount
	}
	if final.integrity != "ok" {
		violations = append(violations, fmt.Sprintf("final integrity=%s", final.integrity))
	}
	if final.backupCount != final.mainCount {
		violations = append(violations, fmt.Sprintf("final backupCount %d != mainCount %d", final.backupCount, final.mainCount))
	}
	if int64(len(ids.seen)) != final.mainCount {
		violations = append(violations, fmt.Sprintf("identities handed out %d != rows %d", len(ids.seen), final.mainCount))
	}
	for _, id := range ids.dups {
		violations = append(violations, fmt.Sprintf("identity %d handed out twice", id))
	}

	if len(violations) == 0 {
		log.Println("RESULT: PASS (distinct identities, consistent snapshots under concurrent writes)")
	} else {
		log.Println("RESULT: FAIL")
		for _, v := range violations {
			log.Printf(" - %s", v)
		}
	}

	log.Println("done.")
}
