package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/pior/mcclient"
	"github.com/rs/zerolog"
)

var (
	servers  = flag.String("servers", "localhost:11211", "Comma-separated list of memcached servers")
	prefix   = flag.String("prefix", "", "Key prefix")
	compress = flag.Int("compress", 0, "Compress values of at least this many bytes (0 disables)")
	ring     = flag.Bool("ring", false, "Use the consistent hash ring selector")
	timeout  = flag.Duration("timeout", 5*time.Second, "Timeout per command")
	debug    = flag.Bool("debug", false, "Log client events to stderr")
)

const helpText = `Commands:
  get <key>                          Get a value
  gets <key> [key...]                Get several values at once
  set <key> <value> [ttl]            Store a value
  add|replace <key> <value> [ttl]    Store if absent / present
  append|prepend <key> <value>       Extend an existing value
  delete <key> [key...]              Delete keys
  incr|decr <key> [delta]            Update a counter (delta defaults to 1)
  flush [delay]                      Invalidate every item
  stats                              Show client and pool stats
  .help                              Show this help
  .exit                              Quit

Values that parse as integers or booleans are stored typed.`

func main() {
	flag.Parse()

	logger := zerolog.Nop()
	if *debug {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	}

	config := mcclient.Config{
		Timeout:           *timeout,
		CompressThreshold: *compress,
		Logger:            &logger,
	}
	if *ring {
		config.SelectServer = mcclient.NewRingSelector()
	}

	client, err := mcclient.New(mcclient.NewStaticServers(strings.Split(*servers, ",")...), config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt: ">> ",
	})
	if err != nil {
		log.Fatalf("Failed to initialize readline: %v", err)
	}
	defer rl.Close()

	fmt.Println("mcclient (type '.help' for commands, '.exit' to quit)")
	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ".help":
			fmt.Println(helpText)
			continue
		case ".exit":
			return
		}

		handleQuery(client, line)
	}
}

func handleQuery(client *mcclient.Client, line string) {
	cmd, err := parse(line)
	if err != nil {
		fmt.Println("Parsing Error:", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var opts []mcclient.Option
	if *prefix != "" {
		opts = append(opts, mcclient.WithKeyPrefix(*prefix))
	}
	if cmd.ttl > 0 {
		opts = append(opts, mcclient.WithTTL(cmd.ttl))
	}

	start := time.Now()
	err = run(ctx, client, cmd, opts)
	if err != nil {
		var batchErr *mcclient.BatchError
		if errors.As(err, &batchErr) {
			fmt.Printf("error: %v (stored before abort: %v)\n", err, batchErr.Succeeded())
		} else {
			fmt.Printf("error: %v\n", err)
		}
	}
	fmt.Printf("(took %v)\n", time.Since(start).Round(time.Microsecond))
}

func run(ctx context.Context, client *mcclient.Client, cmd command, opts []mcclient.Option) error {
	switch cmd.name {
	case "get":
		value, ok, err := client.Get(ctx, cmd.keys[0], opts...)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Printf("%s: %v\n", value.Kind(), value)

	case "gets":
		values, err := client.GetMulti(ctx, cmd.keys, opts...)
		if err != nil {
			return err
		}
		for _, key := range cmd.keys {
			if value, ok := values[key]; ok {
				fmt.Printf("%s = %s: %v\n", key, value.Kind(), value)
			} else {
				fmt.Printf("%s (not found)\n", key)
			}
		}

	case "set", "add", "replace", "append", "prepend":
		store := map[string]func(context.Context, string, any, ...mcclient.Option) (bool, error){
			"set":     client.Set,
			"add":     client.Add,
			"replace": client.Replace,
			"append":  client.Append,
			"prepend": client.Prepend,
		}[cmd.name]

		var value any = cmd.value
		if cmd.name == "set" || cmd.name == "add" || cmd.name == "replace" {
			value = typedValue(cmd.value)
		}

		ok, err := store(ctx, cmd.keys[0], value, opts...)
		if err != nil {
			return err
		}
		if ok {
			fmt.Println("STORED")
		} else {
			fmt.Println("NOT_STORED")
		}

	case "delete":
		ok, err := client.DeleteMulti(ctx, cmd.keys, opts...)
		if err != nil {
			return err
		}
		if ok {
			fmt.Println("DELETED")
		} else {
			fmt.Println("NOT_FOUND (some keys)")
		}

	case "incr", "decr":
		arith := client.Incr
		if cmd.name == "decr" {
			arith = client.Decr
		}
		value, ok, err := arith(ctx, cmd.keys[0], cmd.delta, opts...)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("NOT_FOUND")
			return nil
		}
		fmt.Println(value)

	case "flush":
		if err := client.FlushAll(ctx, cmd.delay); err != nil {
			return err
		}
		fmt.Println("OK")

	case "stats":
		s := client.Stats()
		fmt.Printf("gets=%d hits=%d stores=%d store_failures=%d deletes=%d arith=%d compressed=%d fatal=%d\n",
			s.Gets, s.GetHits, s.Stores, s.StoreFailures, s.Deletes, s.Arith, s.Compressed, s.FatalErrors)
		for _, ps := range client.PoolStats() {
			fmt.Printf("  %s: total=%d active=%d idle=%d created=%d destroyed=%d acquire_errors=%d breaker=%s\n",
				ps.Addr, ps.PoolStats.TotalConns, ps.PoolStats.ActiveConns, ps.PoolStats.IdleConns,
				ps.PoolStats.CreatedConns, ps.PoolStats.DestroyedConns, ps.PoolStats.AcquireErrors, ps.BreakerState)
		}
	}

	return nil
}
