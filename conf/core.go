package conf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/zeptools/gw-invoicer/apis/docserver"
	"github.com/zeptools/gw-invoicer/assemble"
	"github.com/zeptools/gw-invoicer/db"
	"github.com/zeptools/gw-invoicer/db/kvdb"
	"github.com/zeptools/gw-invoicer/db/kvdb/impls/memory"
	"github.com/zeptools/gw-invoicer/db/kvdb/impls/redis"
	"github.com/zeptools/gw-invoicer/db/sqldb"
	"github.com/zeptools/gw-invoicer/db/sqldb/impls/mysql"
	"github.com/zeptools/gw-invoicer/db/sqldb/impls/pgsql"
	"github.com/zeptools/gw-invoicer/invoice"
	"github.com/zeptools/gw-invoicer/journal"
	"github.com/zeptools/gw-invoicer/sec"
)

// Core - common config
type Core struct {
	AppName              string `json:"app_name"`
	JournalRetentionDays int    `json:"journal_retention_days"` // 0 = keep run records
	assemble.Options            // assets_dir, output, concurrency, summary, ...

	AppRoot             string                  `json:"-"` // Directory holding config/
	RootCtx             context.Context         `json:"-"` // Global Context with RootCancel
	RootCancel          context.CancelFunc      `json:"-"` // CancelFunc for RootCtx
	BackendHttpClient   *http.Client            `json:"-"` // for requests to the document server
	DocServerConf       docserver.Conf          `json:"-"` // PrepareDocServerClient
	DocServerClient     *docserver.Client       `json:"-"` // PrepareDocServerClient
	KVDBConf            kvdb.Conf               `json:"-"` // loadKVDBConf
	BackendKVDBClient   kvdb.Client             `json:"-"` // PrepareJournal
	Journal             *journal.Journal        `json:"-"` // PrepareJournal
	SQLDBConfs          map[string]*sqldb.Conf  `json:"-"` // loadSQLDBConfs
	BackendSQLDBClients map[string]sqldb.Client `json:"-"` // PrepareSQLDatabases
	ViewerConf          sec.ViewerConf          `json:"-"` // PrepareViewerTokens
	ViewerTokens        *sec.ViewerTokenIssuer  `json:"-"` // PrepareViewerTokens

	closers db.Closers // clients to close in ResourceCleanUp
}

var ErrNotPrepared = errors.New("not prepared")

// BaseInit - 1st step for initialization
// 1. set AppRoot
// 2. load config/.core.json file over the defaults
// 3. Start ShutdownSignalListener
func (c *Core) BaseInit(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	c.Options = assemble.DefaultOptions()
	if err := c.loadConfFile(".core.json", c); err != nil {
		return err
	}
	if !filepath.IsAbs(c.AssetsDir) {
		c.AssetsDir = filepath.Join(appRoot, c.AssetsDir)
	}
	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.startShutdownSignalListener()
	return nil
}

func (c *Core) confPath(name string) string {
	return filepath.Join(c.AppRoot, "config", name)
}

func (c *Core) loadConfFile(name string, v any) error {
	confBytes, err := os.ReadFile(c.confPath(name)) // ([]byte, error)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(confBytes, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

var once sync.Once

func (c *Core) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Printf("[INFO] got signal [%s]. shutting down app [%s] ...", sig, c.AppName)
			c.RootCancel() // in-flight requests see RootCtx.Done()
		}()
	})
	log.Printf("[INFO][CORE] shutdown signal listener started")
}

// PrepareDocServerClient to Send Requests to the document server
// Environment variables override the config file
func (c *Core) PrepareDocServerClient() error {
	c.DocServerConf = docserver.DefaultConf()
	if err := c.loadConfFile(".docserver.json", &c.DocServerConf); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	c.DocServerConf.ApplyEnv()
	if err := c.DocServerConf.Validate(); err != nil {
		return err
	}
	c.BackendHttpClient = &http.Client{
		Timeout: time.Duration(c.DocServerConf.TimeoutSeconds) * time.Second,
	}
	c.DocServerClient = docserver.NewClient(c.BackendHttpClient, &c.DocServerConf)
	c.TemplateLayer = c.DocServerConf.TemplateLayer
	return nil
}

// PrepareJournal opens the key-value database for the run journal.
// Without config/.kv-databases.json the journal lives in memory for this process only.
func (c *Core) PrepareJournal() error {
	if err := c.loadKVDBConf(); err != nil {
		return err
	}
	if err := c.prepareKVDBClient(); err != nil {
		return err
	}
	c.Journal = journal.New(c.BackendKVDBClient)
	if c.AppName != "" {
		c.Journal.Prefix = c.AppName
	}
	c.Journal.Retention = time.Duration(c.JournalRetentionDays) * 24 * time.Hour
	return nil
}

func (c *Core) loadKVDBConf() error {
	err := c.loadConfFile(".kv-databases.json", &c.KVDBConf)
	if errors.Is(err, fs.ErrNotExist) {
		c.KVDBConf = kvdb.Conf{Type: "memory"}
		return nil
	}
	return err
}

func (c *Core) prepareKVDBClient() error {
	if c.KVDBConf.Type == "" {
		c.KVDBConf.Type = "memory"
	}
	if err := c.KVDBConf.Validate(); err != nil {
		return err
	}
	switch c.KVDBConf.Type {
	case "redis":
		c.BackendKVDBClient = &redis.Client{Conf: &c.KVDBConf}
	default:
		c.BackendKVDBClient = &memory.Client{Conf: &c.KVDBConf}
	}
	if err := c.BackendKVDBClient.Init(); err != nil {
		return err
	}
	c.closers.Add("kvdb:"+c.KVDBConf.Type, c.BackendKVDBClient)
	return nil
}

func (c *Core) loadSQLDBConfs() error {
	c.SQLDBConfs = make(map[string]*sqldb.Conf)
	return c.loadConfFile(".sql-databases.json", &c.SQLDBConfs)
}

// PrepareSQLDatabases - Build & Init SQL DB Clients from config/.sql-databases.json
func (c *Core) PrepareSQLDatabases() error {
	if err := c.loadSQLDBConfs(); err != nil {
		return err
	}
	c.BackendSQLDBClients = make(map[string]sqldb.Client)

	// Registering Supported Implementations
	pgsql.Register()
	mysql.Register()

	for dbName, sqlDBConf := range c.SQLDBConfs {
		dbClient, err := sqldb.New(sqlDBConf.Type, sqlDBConf)
		if err != nil {
			return fmt.Errorf("%s: %w", dbName, err)
		}
		if err = dbClient.Init(c.RootCtx); err != nil {
			return fmt.Errorf("%s: %w", dbName, err)
		}
		c.BackendSQLDBClients[dbName] = dbClient
		c.closers.Add(fmt.Sprintf("sqldb:%s:%s", sqlDBConf.Type, dbName), dbClient)
	}
	return nil
}

// InvoiceSource returns an invoice source reading from the named SQL database
func (c *Core) InvoiceSource(dbName string) (*invoice.SQLSource, error) {
	dbClient, ok := c.BackendSQLDBClients[dbName]
	if !ok {
		return nil, fmt.Errorf("sql database %q: %w", dbName, ErrNotPrepared)
	}
	return &invoice.SQLSource{Handle: dbClient.GetHandle(), Conf: dbClient.GetConf()}, nil
}

// PrepareViewerTokens loads config/.viewer.json and its RSA private key
// Prerequisite: DocServerConf
func (c *Core) PrepareViewerTokens() error {
	if err := c.loadConfFile(".viewer.json", &c.ViewerConf); err != nil {
		return err
	}
	keyPath := c.ViewerConf.PrivateKey
	if keyPath == "" {
		return errors.New(".viewer.json: private_key is required")
	}
	if !filepath.IsAbs(keyPath) {
		keyPath = filepath.Join(c.AppRoot, keyPath)
	}
	key, err := sec.LoadLocalPrivatePEMKey(keyPath)
	if err != nil {
		return err
	}
	c.ViewerTokens, err = sec.NewViewerTokenIssuer(key, c.ViewerConf, c.DocServerConf.DocumentID)
	return err
}

// Assembler wires the document server client and the journal
// Prerequisite: DocServerClient
func (c *Core) Assembler() (*assemble.Assembler, error) {
	if c.DocServerClient == nil {
		return nil, fmt.Errorf("document server client: %w", ErrNotPrepared)
	}
	var rec assemble.Recorder
	if c.Journal != nil {
		rec = c.Journal
	}
	return assemble.New(c.DocServerClient, rec, c.Options), nil
}

func (c *Core) ResourceCleanUp() {
	log.Println("[INFO] App Resource Cleaning Up...")
	if err := c.closers.CloseAll(); err != nil {
		log.Printf("[WARN] %v", err)
	}
	if c.BackendHttpClient != nil {
		c.BackendHttpClient.CloseIdleConnections()
	}
	log.Println("[INFO] App Resource Cleanup Complete")
}
