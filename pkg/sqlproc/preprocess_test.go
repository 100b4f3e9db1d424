package sqlproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripComments(t *testing.T) {
	sql := "SELECT a -- 行注释\nFROM idx /* 块注释 */ WHERE b = '-- 不是注释' # 尾注释\n"
	got := StripComments(sql)
	assert.NotContains(t, got, "行注释")
	assert.NotContains(t, got, "块注释")
	assert.NotContains(t, got, "尾注释")
	assert.Contains(t, got, "'-- 不是注释'")
}

func TestStripComments_UnterminatedBlock(t *testing.T) {
	assert.Equal(t, "SELECT 1 ", StripComments("SELECT 1/* 没闭合"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "SELECT a FROM idx", Normalize("  SELECT\n\t a   FROM  idx ; "))
	// 引号串内的空白原样保留
	assert.Equal(t, "SELECT 'a  b'", Normalize("SELECT  'a  b'"))
}

func TestSplit(t *testing.T) {
	stmts := Split("SELECT 1; SELECT ';'; ; SHOW TABLES")
	require.Len(t, stmts, 3)
	assert.Equal(t, "SELECT 1", stmts[0])
	assert.Equal(t, "SELECT ';'", stmts[1])
	assert.Equal(t, "SHOW TABLES", stmts[2])
}

func TestFirstKeywordAndClassify(t *testing.T) {
	assert.Equal(t, "SELECT", FirstKeyword("  select * from idx"))
	assert.Equal(t, "SHOW", FirstKeyword("SHOW META"))

	cases := map[string]StatementKind{
		"select 1":                KindSelect,
		"INSERT INTO idx VALUES":  KindInsert,
		"replace into idx values": KindReplace,
		"update idx set a=1":      KindUpdate,
		"delete from idx":         KindDelete,
		"show status":             KindShow,
		"desc idx":                KindDescribe,
		"explain select 1":        KindDescribe,
		"call keywords('x','y')":  KindCall,
		"truncate rtindex idx":    KindOther,
	}
	for sql, want := range cases {
		assert.Equal(t, want, Classify(sql), sql)
	}
}

func TestPrepare(t *testing.T) {
	stmts, err := Prepare("-- 头注释\nSELECT   1;\nSHOW META;")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "SELECT 1", stmts[0])
	assert.Equal(t, "SHOW META", stmts[1])

	_, err = Prepare("/* 只有注释 */")
	assert.Error(t, err)
}
