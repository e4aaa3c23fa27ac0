package main

import (
	"flag"
	"log"
	"os"
	"time"

	"StreamSpectra/internal/config"
	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/feature"
	"StreamSpectra/internal/model"
	"StreamSpectra/internal/pipeline"
	"StreamSpectra/internal/shuffle"
	"StreamSpectra/internal/sink"
	"StreamSpectra/internal/source"
	"StreamSpectra/internal/subscriber"
)

func main() {
	var (
		numNodes     = flag.Int("numNodes", 1, "The number of nodes involved in the computation")
		nodeId       = flag.Int("nodeId", 0, "The node id of this node")
		prefix       = flag.String("prefix", "node", "The prefix common to all nodes")
		startingPort = flag.Int("startingPort", 10000, "The starting port for the shuffle communications")
		hwm          = flag.Int("hwm", 10000, "The high water mark (how many items can queue up before we start dropping)")
		queueLength  = flag.Int("queueLength", 10000, "The size of the queue filled before feeding consumers in parallel")
		n            = flag.Int("N", 10000, "The total number of elements in a sliding window")
		b            = flag.Int("b", 1000, "The number of elements per block (active or dynamic window)")
		k            = flag.Int("k", 2, "The number of heavy hitters to keep track of")
		capacity     = flag.Int("capacity", 10000, "The capacity of the feature map and feature subscriber")
		ip           = flag.String("ip", "localhost", "The ip to receive the data from nc")
		ncPort       = flag.Int("ncPort", 9999, "The port to receive the data from nc")
		netflowfile  = flag.String("netflowfile", "", "Read from a file rather than a socket")
		inputfile    = flag.String("inputfile", "", "Input for --create_features (netflow csv) or --test (model)")
		outputfile   = flag.String("outputfile", "", "Output for --create_features (feature csv)")
		createFlag   = flag.Bool("create_features", false, "Read a netflow file from --inputfile and write a csv feature file to --outputfile")
		trainFlag    = flag.Bool("train", false, "Learn a classifier from a feature file (external step)")
		testFlag     = flag.Bool("test", false, "Apply a learned classifier to the data (external step)")
		configPath   = flag.String("config", "", "Optional YAML config for sinks and the query API")
	)
	// Help exits with status 1, any other flag error with status 2.
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(1)
		}
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	// Flags that were set explicitly win over the config file.
	overrides := map[string]func(){
		"numNodes":     func() { cfg.Node.NumNodes = *numNodes },
		"nodeId":       func() { cfg.Node.NodeId = *nodeId },
		"prefix":       func() { cfg.Node.Prefix = *prefix },
		"startingPort": func() { cfg.Node.StartingPort = *startingPort },
		"hwm":          func() { cfg.Node.HWM = *hwm },
		"queueLength":  func() { cfg.Node.QueueLength = *queueLength },
		"N":            func() { cfg.Window.N = *n },
		"b":            func() { cfg.Window.B = *b },
		"k":            func() { cfg.Window.K = *k },
		"capacity":     func() { cfg.Window.Capacity = *capacity },
	}
	if *configPath == "" {
		for _, apply := range overrides {
			apply()
		}
	} else {
		flag.Visit(func(f *flag.Flag) {
			if apply, ok := overrides[f.Name]; ok {
				apply()
			}
		})
	}

	featureMap := feature.NewMap(cfg.Window.Capacity)

	switch {
	case *createFlag:
		os.Exit(createFeatures(cfg, featureMap, *inputfile, *outputfile))
	case *trainFlag:
		// Training is an external ML step over the feature csv.
		log.Println("--train is handled by the external learning step; nothing to do here")
	case *testFlag:
		log.Println("--test is handled by the external classifier step; nothing to do here")
	default:
		os.Exit(runPipeline(cfg, featureMap, *ip, *ncPort, *netflowfile))
	}
}

// createFeatures ingests a labeled trace and writes one csv feature vector
// per tuple.
func createFeatures(cfg *config.Config, featureMap *feature.Map, inputfile, outputfile string) int {
	if inputfile == "" {
		log.Println("--create_features was specified but no input file was listed with --inputfile")
		return -1
	}
	if outputfile == "" {
		log.Println("--create_features was specified but no output file was listed with --outputfile")
		return -1
	}

	reader := source.NewCSVReader(inputfile, 1)
	sub := subscriber.New(outputfile, cfg.Window.Capacity)

	log.Println("Creating pipeline")
	pipeline.Build(reader, featureMap, sub, cfg)

	if err := sub.Init(); err != nil {
		log.Printf("Failed to init feature subscriber: %v", err)
		return -1
	}
	if err := reader.Connect(); err != nil {
		log.Printf("Problems opening file %s: %v", inputfile, err)
		return -1
	}

	start := time.Now()
	reader.Receive()
	if err := sub.Close(); err != nil {
		log.Printf("Failed to close feature subscriber: %v", err)
	}
	log.Printf("Seconds for Node%d: %.3f, wrote %d feature rows (%d parse errors)",
		cfg.Node.NodeId, time.Since(start).Seconds(), sub.Rows(), reader.ParseErrors())
	return 0
}

// runPipeline runs the live partitioned pipeline until the ingest side is
// exhausted.
func runPipeline(cfg *config.Config, featureMap *feature.Map, ip string, ncPort int, netflowfile string) int {
	var transport shuffle.Transport
	if cfg.Node.NumNodes == 1 {
		transport = shuffle.NewInprocNetwork(1, cfg.Node.HWM).Transport(0)
	} else {
		t, err := shuffle.NewNATSTransport(cfg.Node.NATSURL, cfg.Node.Prefix,
			cfg.Node.NumNodes, cfg.Node.NodeId, cfg.Node.HWM)
		if err != nil {
			log.Printf("Couldn't set up shuffle transport: %v", err)
			return -1
		}
		transport = t
	}

	pushpull := shuffle.NewPushPull(cfg.Node.QueueLength,
		cfg.Node.NumNodes, cfg.Node.NodeId, model.VastTuplizer{},
		model.SourceIPKey, model.DestIPKey, transport)

	gate := pipeline.Build(pushpull, featureMap, nil, cfg)
	registerSinks(gate, cfg)

	var reader interface {
		source.DataSource
		Register(c fabric.Consumer[*model.VastNetflow])
	}
	if netflowfile != "" {
		reader = source.NewCSVReader(netflowfile, cfg.Node.QueueLength)
	} else {
		reader = source.NewSocketReader(ip, ncPort, cfg.Node.QueueLength)
	}
	reader.Register(pushpull)

	if err := reader.Connect(); err != nil {
		log.Printf("Couldn't connect to the data source: %v", err)
		return -1
	}

	pushpull.Start()

	start := time.Now()
	reader.Receive()
	pushpull.Wait()
	transport.Close()

	log.Printf("Seconds for Node%d: %.3f, matched %d dropped %d sendFails %d",
		cfg.Node.NodeId, time.Since(start).Seconds(),
		gate.Matched(), gate.Dropped(), pushpull.SendFails())
	return 0
}

// registerSinks attaches every enabled writer to the filter output.
func registerSinks(gate *pipeline.Gate, cfg *config.Config) {
	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		switch def.Type {
		case "text":
			w, err := sink.NewTextWriter(def.Text.Path)
			if err != nil {
				log.Printf("Warning: failed to create text sink: %v, skipping", err)
				continue
			}
			gate.Register(w)
		case "clickhouse":
			w, err := sink.NewClickHouseWriter(def.ClickHouse, def.BatchSize)
			if err != nil {
				log.Printf("Warning: failed to create clickhouse sink: %v, skipping", err)
				continue
			}
			gate.Register(w)
		default:
			log.Printf("Warning: unknown writer type %q, skipping", def.Type)
		}
	}
}
