package integration

const isaHeader = "ISA*00*          *00*          *ZZ*SUBMITTER      *ZZ*RECEIVER       *260220*1200*^*00501*000000101*0*P*:~"

const claims837 = isaHeader +
	"GS*HC*SUBMITTER*RECEIVER*20260220*1200*101*X*005010X222A1~" +
	"ST*837*0001*005010X222A1~" +
	"BHT*0019*00*BATCH1*20260220*1200*CH~" +
	"HL*1**20*1~" +
	"NM1*85*2*ACME CLINIC*****XX*1999999999~" +
	"HL*2*1*22*0~" +
	"SBR*P*18*******CI~" +
	"NM1*IL*1*SMITH*JANE****MI*W123~" +
	"CLM*CLAIM001*150.00***11:B:1**A*Y*Y~" +
	"REF*D9*TRACE-001~" +
	"HI*ABK:J069~" +
	"LX*1~" +
	"SV1*HC:99213*150.00*UN*1***1~" +
	"DTP*472*D8*20260215~" +
	"HL*3*1*22*0~" +
	"SBR*P*18*******CI~" +
	"CLM*CLAIM002*80.00***11:B:1**A*Y*Y~" +
	"LX*1~" +
	"SV1*HC:97110*80.00*UN*2***1~" +
	"SE*19*0001~GE*1*101~IEA*1*000000101~"

const era835 = isaHeader +
	"GS*HP*PAYER*PROVIDER*20260302*0900*202*X*005010X221A1~" +
	"ST*835*0001~" +
	"BPR*I*180.00*C*ACH*CCP*01*999999999*DA*123456*1512345678**01*888888888*DA*654321*20260301~" +
	"TRN*1*CHK12345*1512345678~" +
	"N1*PR*BLUE PAYER*XV*PAYER01~" +
	"CLP*CLAIM001*1*150.00*100.00*25.00*CI*PCN-777~" +
	"CAS*CO*45*50.00*PR*2*25.00~" +
	"SVC*HC:99213*150.00*100.00**1~" +
	"CAS*CO*45*50.00~" +
	"CLP*claim-002*4*80.00*0*0*CI*PCN-888~" +
	"CLP*NOPE*1*10.00*10.00*0*CI~" +
	"SE*12*0001~GE*1*202~IEA*1*000000202~"
