package transform

// Korean dictionaries for masked names and addresses.
var (
	lastNames  = []string{"김", "이", "박", "최", "정", "강", "조", "윤", "장", "임", "한", "오", "서", "신", "권", "황", "안", "송", "류", "전"}
	firstNames = []string{"민준", "서준", "도윤", "예준", "시우", "하준", "지호", "주원", "지우", "준우", "서연", "서윤", "서현", "하은", "민서", "지유", "윤서", "채원"}
	cities     = []string{"서울", "부산", "대구", "인천", "광주", "대전", "울산", "수원", "성남", "고양", "용인", "부천", "안산", "청주", "전주", "천안", "남양주", "화성", "안양", "김해"}
	districts  = []string{"강남구", "서초구", "송파구", "종로구", "마포구", "영등포구", "관악구", "동작구", "강동구", "노원구", "은평구", "서대문구", "성북구", "동대문구", "중랑구"}
	streets    = []string{"테헤란로", "강남대로", "송파대로", "올림픽로", "한강대로", "세종대로", "을지로", "퇴계로", "충무로", "종로", "신촌로", "양화로", "경인로", "시흥대로", "남부순환로"}
)
