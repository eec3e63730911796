package schema

import "strings"

var abbreviations = map[string]string{
	"nm": "name", "dt": "date", "no": "number", "cd": "code",
	"desc": "description", "amt": "amount", "cnt": "count", "qty": "quantity",
	"addr": "address", "tel": "phone", "hp": "phone", "ph": "phone",
	"biz": "business", "pwd": "password", "passwd": "password", "pw": "password",
	"img": "image", "zip": "zipcode", "post": "zipcode",
	"msg": "message", "txt": "text", "tit": "title", "subj": "subject",
	"doc": "document", "usr": "user", "emp": "employee",
	"dept": "department", "grp": "group", "cat": "category",
	"loc": "location", "lat": "latitude", "lng": "longitude", "lon": "longitude",
	"st": "street", "prov": "province", "dist": "district",
	"bal": "balance", "rst": "result", "rslt": "result",
	"std": "standard", "avg": "average", "uid": "id", "pid": "id",
	"reg": "registered", "mod": "modified", "del": "deleted", "cre": "created",
	"upd": "updated", "yn": "yesno", "stat": "status", "sts": "status",
	"typ": "type", "val": "value", "ord": "order", "seq": "sequence", "idx": "index",
	"is": "yesno", "flg": "flag", "ts": "timestamp", "tm": "time",
}

// commentHints maps comment keywords to a meaning; first match wins.
var commentHints = []struct {
	meaning  string
	keywords []string
}{
	{"phone", []string{"전화", "휴대폰", "연락처", "mobile", "phone"}},
	{"email", []string{"이메일", "메일", "email", "mail"}},
	{"address", []string{"주소", "address"}},
	{"zipcode", []string{"우편", "zip", "postal"}},
	{"name", []string{"이름", "성명", "name"}},
	{"password", []string{"비밀번호", "패스워드", "password"}},
	{"title", []string{"제목", "title"}},
	{"description", []string{"내용", "설명", "desc"}},
	{"date", []string{"날짜", "일시", "date", "time"}},
	{"price", []string{"금액", "가격", "price", "cost"}},
	{"count", []string{"수량", "개수", "count", "qty"}},
	{"yesno", []string{"여부", "flag"}},
}

// AnalyzeMeaning guesses what a column holds, from its comment first and
// then from the abbreviations in its name ("usr_nm" -> "user name").
func AnalyzeMeaning(colName, comment string) string {
	c := strings.ToLower(comment)
	if c != "" {
		for _, h := range commentHints {
			for _, kw := range h.keywords {
				if strings.Contains(c, kw) {
					return h.meaning
				}
			}
		}
	}
	return DecodeName(colName)
}

// DecodeName expands the abbreviated parts of a snake_case name.
func DecodeName(name string) string {
	parts := strings.Split(strings.ToLower(name), "_")
	for i, part := range parts {
		if full, ok := abbreviations[part]; ok {
			parts[i] = full
		}
	}
	return strings.Join(parts, " ")
}
