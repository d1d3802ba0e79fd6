package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/lpoller/go-hasp/v1/coordinator"
	"github.com/lpoller/go-hasp/v1/lockrec"
	"github.com/lpoller/go-hasp/v1/signal"
	"github.com/lpoller/go-hasp/v1/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: haspctl [flags] <command>

Commands:
  acquire   take the lock and hold it until interrupted
  probe     print the current lock record
  release   mark the lock released (requires -force to take over a held lock)

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis address")
	prefix := flag.String("prefix", store.DefaultKeyPrefix, "Redis key prefix")
	scope := flag.String("scope", "", "lock scope name")
	job := flag.String("job", "", "job identifier")
	duration := flag.Duration("duration", 30*time.Second, "lease duration")
	force := flag.Bool("force", false, "release a lock this process does not hold")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 || *scope == "" || *job == "" {
		usage()
		os.Exit(2)
	}

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()
	c, err := coordinator.New(store.NewRedis(client, *prefix), signal.NewRedisBus(client), coordinator.Config{})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	lockID := lockrec.GenerateLockID(*scope, *job)

	switch flag.Arg(0) {
	case "acquire":
		lk, err := c.Acquire(ctx, *scope, *job, *duration)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("acquired %s until %s\n", lk.LockID(), lk.ExpiresAt().Format(time.RFC3339))
		renew := time.NewTicker(*duration / 2)
		defer renew.Stop()
		for range renew.C {
			if lk, err = c.Renew(ctx, lk); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("renewed until %s\n", lk.ExpiresAt().Format(time.RFC3339))
		}
	case "probe":
		lk, found, err := c.Probe(ctx, lockID)
		if err != nil {
			log.Fatal(err)
		}
		if !found {
			fmt.Printf("%s: no lock record\n", lockID)
			return
		}
		fmt.Println(lk)
	case "release":
		if !*force {
			log.Fatal("release without -force would clobber a holder's lease")
		}
		lk, found, err := c.Probe(ctx, lockID)
		if err != nil {
			log.Fatal(err)
		}
		if !found {
			fmt.Printf("%s: no lock record\n", lockID)
			return
		}
		if _, err := c.Release(ctx, lk); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("released %s\n", lockID)
	default:
		usage()
		os.Exit(2)
	}
}
