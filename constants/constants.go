package constants

const (
	// config
	DEFAULT_CONFIG_DIR  = ".kvbench"
	DEFAULT_CONFIG_FILE = "config.json"
	DEFAULT_LOG_FILE    = "run.log"
	DEFAULT_POOL_ID     = "2bd513ad-66d1-4312-829b-d69d8637b455"

	// keys are padded up to the requested size, the trailing INDEX_WIDTH bytes hold the key number
	INDEX_WIDTH  int = 16
	MIN_KEY_SIZE int = INDEX_WIDTH

	KEY_FILLER   byte = 'x'
	VALUE_FILLER byte = 'z'

	// number of keys fetched per listing call
	DEFAULT_PAGE_SIZE  = 8
	DEFAULT_ITERATIONS = 1

	// object id of the flat kv object every benchmark runs against
	DEFAULT_OBJECT_ID = "kv-flat-4"

	// store backends
	BACKEND_MEMORY = "memory"
	BACKEND_ETCD   = "etcd"

	// benchmarked operations, run in this order
	OP_PUT    = "put"
	OP_GET    = "get"
	OP_LIST   = "list"
	OP_REMOVE = "remove"

	// report time units
	TIME_UNIT_NS = "ns"
	TIME_UNIT_US = "us"
	TIME_UNIT_MS = "ms"
	TIME_UNIT_S  = "s"

	// results
	DEFAULT_RESULTS_FILE       = "results.csv"
	DEFAULT_RESULTS_BATCH_SIZE = 64
)

// Key sizes, value sizes and operation counts of the default matrix.
var (
	DEFAULT_KEY_SIZES   = []int{64, 128, 256, 512, 1024}
	DEFAULT_VALUE_SIZES = []int{1024, 4 * 1024, 8 * 1024, 16 * 1024, 32 * 1024}
	DEFAULT_NUM_OPS     = []int{1_000_000}

	ALL_OPERATIONS = []string{OP_PUT, OP_GET, OP_LIST, OP_REMOVE}
)
