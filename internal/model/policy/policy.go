package policy

// Document is one reference policy text used as grounding context for
// generated customer replies.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Seed provides the built-in policy corpus used when no external policy
// directory is configured.
func Seed() []Document {
	return []Document{
		{
			ID:    "refund",
			Title: "환불 정책",
			Content: "구매일로부터 7일 이내에는 단순 변심에 의한 환불이 가능합니다. " +
				"환불은 결제 수단과 동일한 방법으로 영업일 기준 3~5일 내에 처리됩니다. " +
				"제품 하자나 오배송의 경우 기간 제한 없이 전액 환불을 지원하며, 반송 비용은 회사가 부담합니다. " +
				"단순 변심 환불의 경우 왕복 배송비는 고객 부담입니다. " +
				"개봉 후 사용 흔적이 있는 상품, 포장 훼손으로 재판매가 불가능한 상품은 환불이 제한될 수 있습니다.",
		},
		{
			ID:    "shipping",
			Title: "배송 정책",
			Content: "주문 완료 후 평균 2~3 영업일 내에 출고되며, 도서산간 지역은 1~2일이 추가될 수 있습니다. " +
				"출고 이후에는 문자와 앱 알림으로 운송장 번호를 안내해 드립니다. " +
				"배송 조회는 마이페이지 주문 내역에서 실시간으로 확인할 수 있습니다. " +
				"배송 지연이 5 영업일을 초과하는 경우 고객센터를 통해 지연 보상 쿠폰을 신청할 수 있습니다.",
		},
		{
			ID:    "damage",
			Title: "파손 및 교환 정책",
			Content: "배송 중 파손된 상품은 수령일로부터 30일 이내에 사진과 함께 접수해 주시면 무상 교환해 드립니다. " +
				"교환 상품의 재고가 없는 경우 전액 환불로 전환됩니다. " +
				"파손 접수 시 택배 기사 방문 수거를 지원하며, 고객이 직접 반송할 필요가 없습니다. " +
				"동일 상품의 반복 파손이 확인되면 추가 보상 절차가 진행됩니다.",
		},
		{
			ID:    "payment",
			Title: "결제 정책",
			Content: "신용카드, 계좌이체, 간편결제를 지원합니다. " +
				"중복 결제가 확인되면 별도 요청 없이 영업일 기준 2일 내 자동 취소됩니다. " +
				"결제 오류로 주문이 생성되지 않은 경우 승인 금액은 카드사 정책에 따라 3~7일 내 환급됩니다. " +
				"현금 결제 건은 현금영수증 발급이 가능하며, 발급 기한은 결제일로부터 30일입니다.",
		},
	}
}
