package adapter

// SchemaSource 活数据库结构源。DDR 文件之外的另一种图来源：
// 直接内省 MySQL / SQL Server 的结构，走同一套遍历和装配管线
type SchemaSource interface {
	// IntrospectSchema 获取表和列元数据
	IntrospectSchema() (*SchemaMetadata, error)

	// ForeignKeys 获取外键约束
	ForeignKeys() ([]ForeignKey, error)

	// Close 关闭连接
	Close() error
}

// SchemaMetadata 元数据
type SchemaMetadata struct {
	Tables []Table
}

// Table 表信息
type Table struct {
	Schema  string
	Name    string
	Columns []Column
}

// Column 列信息
type Column struct {
	Name         string
	DataType     string
	Length       int
	Nullable     bool
	IsPrimaryKey bool
}

// ForeignKey 外键
type ForeignKey struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}
