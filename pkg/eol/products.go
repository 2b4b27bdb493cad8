package eol

import (
	"regexp"
	"strings"
)

// productIDs maps common datastore product names to endoflife.date identifiers.
//
//nolint:gochecknoglobals // static lookup table
var productIDs = map[string]string{
	// Relational and managed databases
	"PostgreSQL":           "postgresql",
	"MySQL":                "mysql",
	"MariaDB":              "mariadb",
	"SQL Server":           "mssql",
	"Microsoft SQL Server": "mssql",
	"Oracle Database":      "oracle-database",
	"Oracle":               "oracle-database",
	"MongoDB":              "mongodb",
	"Redis":                "redis",
	"Elasticsearch":        "elasticsearch",
	"CockroachDB":          "cockroachdb",
	"Couchbase Server":     "couchbase-server",
	"Couchbase":            "couchbase-server",
	"Apache Cassandra":     "cassandra",
	"Cassandra":            "cassandra",
	"Microsoft Access":     "microsoft-access",
	"Access":               "microsoft-access",
	"DB2":                  "ibm-db2",
	"IBM DB2":              "ibm-db2",
	"Informix":             "ibm-informix",
	"Sybase":               "sap-ase",
	"SAP ASE":              "sap-ase",
	"Neo4j":                "neo4j",
	"InfluxDB":             "influxdb",
	"TimescaleDB":          "timescaledb",
	"Amazon RDS":           "amazon-rds",
	"Amazon Aurora":        "amazon-aurora",
	"Google Cloud SQL":     "google-cloud-sql",
	"Azure SQL":            "azure-sql-database",

	// Messaging
	"Apache Kafka":    "apache-kafka",
	"Kafka":           "apache-kafka",
	"RabbitMQ":        "rabbitmq",
	"ActiveMQ":        "activemq",
	"Apache ActiveMQ": "activemq",
	"Amazon MQ":       "amazon-mq",

	// Search and analytics
	"Splunk":      "splunk",
	"Apache Solr": "solr",
	"Solr":        "solr",
	"Logstash":    "logstash",
	"Kibana":      "kibana",

	// Key-value and coordination
	"Memcached":        "memcached",
	"Etcd":             "etcd",
	"Consul":           "consul",
	"Apache ZooKeeper": "zookeeper",
	"ZooKeeper":        "zookeeper",

	// Document
	"CouchDB":        "couchdb",
	"Apache CouchDB": "couchdb",

	// Graph
	"ArangoDB": "arangodb",
	"OrientDB": "orientdb",

	// Monitoring
	"Prometheus": "prometheus",
	"Grafana":    "grafana",

	// Wide column
	"HBase":        "hbase",
	"Apache HBase": "hbase",
	"ScyllaDB":     "scylladb",

	// NewSQL
	"VoltDB": "voltdb",
	"NuoDB":  "nuodb",
}

var productSuffix = regexp.MustCompile(`(?i)\s+(Database|Server|DB)$`)

// ProductID maps a free-form product name to an endoflife.date identifier.
// Unknown names fall back to the lower-cased, hyphenated input.
func ProductID(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if id, ok := lookupProduct(name); ok {
		return id
	}
	if stripped := productSuffix.ReplaceAllString(name, ""); stripped != name {
		if id, ok := lookupProduct(stripped); ok {
			return id
		}
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func lookupProduct(name string) (string, bool) {
	if id, ok := productIDs[name]; ok {
		return id, true
	}
	for k, id := range productIDs {
		if strings.EqualFold(k, name) {
			return id, true
		}
	}
	return "", false
}
