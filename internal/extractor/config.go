package extractor

// Config names the APIs the extractor treats specially. Names are simple
// (unqualified) type or method names.
type Config struct {
	// ResourceTypes are closeable types acquired with new.
	ResourceTypes []string `yaml:"resource_types"`
	// AcquireCalls return a closeable the caller owns.
	AcquireCalls []string `yaml:"acquire_calls"`
	// ReleaseCalls release their receiver.
	ReleaseCalls []string `yaml:"release_calls"`
	// ReleaseHelpers release their first argument, e.g. closeQuietly(x).
	ReleaseHelpers []string `yaml:"release_helpers"`
	// TaskTypes are thread/task types: lambdas handed to their constructors,
	// and run()/call() of classes extending them, run concurrently.
	TaskTypes []string `yaml:"task_types"`
	// TaskSpawners are methods whose lambda arguments run concurrently.
	TaskSpawners []string `yaml:"task_spawners"`
	// MutatingCalls modify their receiver in place.
	MutatingCalls []string `yaml:"mutating_calls"`
}

// DefaultConfig covers the JDK.
func DefaultConfig() Config {
	return Config{
		ResourceTypes: []string{
			"FileInputStream", "FileOutputStream", "FileReader", "FileWriter",
			"BufferedReader", "BufferedWriter", "BufferedInputStream", "BufferedOutputStream",
			"InputStreamReader", "OutputStreamWriter", "PrintWriter", "PrintStream",
			"DataInputStream", "DataOutputStream", "ObjectInputStream", "ObjectOutputStream",
			"RandomAccessFile", "Scanner", "Socket", "ServerSocket",
			"ZipFile", "JarFile", "ZipInputStream", "ZipOutputStream", "Formatter",
		},
		AcquireCalls: []string{
			"getConnection", "createStatement", "prepareStatement", "prepareCall", "executeQuery",
			"newInputStream", "newOutputStream", "newBufferedReader", "newBufferedWriter", "openStream",
		},
		ReleaseCalls:   []string{"close"},
		ReleaseHelpers: []string{"closeQuietly"},
		TaskTypes:      []string{"Thread", "Runnable", "Callable", "TimerTask"},
		TaskSpawners: []string{
			"submit", "execute", "runAsync", "supplyAsync", "schedule",
			"scheduleAtFixedRate", "scheduleWithFixedDelay", "startVirtualThread",
		},
		MutatingCalls: []string{
			"add", "addAll", "addFirst", "addLast", "put", "putAll", "putIfAbsent",
			"remove", "removeAll", "retainAll", "clear", "set", "offer", "push", "poll", "pop",
			"compute", "computeIfAbsent", "merge", "append", "insert", "delete", "setLength", "sort",
		},
	}
}

// Merge appends the entries of extra to c.
func (c Config) Merge(extra Config) Config {
	c.ResourceTypes = append(c.ResourceTypes, extra.ResourceTypes...)
	c.AcquireCalls = append(c.AcquireCalls, extra.AcquireCalls...)
	c.ReleaseCalls = append(c.ReleaseCalls, extra.ReleaseCalls...)
	c.ReleaseHelpers = append(c.ReleaseHelpers, extra.ReleaseHelpers...)
	c.TaskTypes = append(c.TaskTypes, extra.TaskTypes...)
	c.TaskSpawners = append(c.TaskSpawners, extra.TaskSpawners...)
	c.MutatingCalls = append(c.MutatingCalls, extra.MutatingCalls...)
	return c
}

type nameSet map[string]struct{}

func newNameSet(names []string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s nameSet) any(names []string) bool {
	for _, n := range names {
		if s.has(n) {
			return true
		}
	}
	return false
}
